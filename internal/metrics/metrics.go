package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counters for the listing query cache.
	ListingCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_cache_hits_total",
			Help: "Total number of movie-listing cache hits.",
		},
	)
	ListingCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_cache_misses_total",
			Help: "Total number of movie-listing cache misses.",
		},
	)

	// Counters for the per-user recommendation cache.
	RecoCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reco_cache_hits_total",
			Help: "Total number of recommendation cache hits.",
		},
	)
	RecoCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reco_cache_misses_total",
			Help: "Total number of recommendation cache misses.",
		},
	)

	// SharedLoadsTotal counts calls that were collapsed onto an
	// in-flight load for the same key instead of issuing their own.
	SharedLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_shared_loads_total",
			Help: "Total number of cache loads collapsed onto an in-flight load.",
		},
	)

	// InvalidationsTotal counts applied cache evictions by scope.
	InvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache invalidations applied, by scope.",
		},
		[]string{"scope"},
	)

	// Histogram: HTTP latency in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		ListingCacheHitsTotal,
		ListingCacheMissesTotal,
		RecoCacheHitsTotal,
		RecoCacheMissesTotal,
		SharedLoadsTotal,
		InvalidationsTotal,
		HTTPLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures latency for each HTTP request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()

		HTTPLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
