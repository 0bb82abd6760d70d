package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"moviehub-backend/internal/handlers"
	"moviehub-backend/internal/metrics"
	"moviehub-backend/internal/middleware"
)

func SetupRouter(
	r *chi.Mux,
	baseLogger *zap.Logger,
	moviesHandler *handlers.MoviesHandler,
	recoHandler *handlers.RecommendationsHandler,
	hooksHandler *handlers.HooksHandler,
) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())               // panic recovery
	r.Use(middleware.Timeout(15 * time.Second)) // request timeout
	r.Use(middleware.MaxBodySize(512 * 1024))   // 512 KB max body

	// routes
	r.Route("/v1", func(r chi.Router) {
		r.Get("/movies", moviesHandler.ListMovies)
		r.Get("/users/{userID}/recommendations", recoHandler.GetRecommendations)

		// write-path hooks for CRUD replicas without in-process access
		r.Route("/internal/invalidate", func(r chi.Router) {
			r.Post("/movies", hooksHandler.MovieChanged)
			r.Post("/users/{userID}/ratings", hooksHandler.RatingChanged)
			r.Post("/users/{userID}/watch-events", hooksHandler.WatchEventRecorded)
		})
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
