package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"moviehub-backend/internal/activity"
	"moviehub-backend/internal/cache"
	"moviehub-backend/internal/catalog"
	"moviehub-backend/internal/handlers"
	"moviehub-backend/internal/httpserver"
	"moviehub-backend/internal/invalidation"
	"moviehub-backend/internal/listing"
	"moviehub-backend/internal/metrics"
	"moviehub-backend/internal/reco"
	"moviehub-backend/pkg/logging"
)

type Config struct {
	Port         string
	CacheBackend string // "memory" or "redis"
	RedisAddr    string
	MySQLDSN     string
	MongoURI     string
	MongoDBName  string

	ListingTTL     time.Duration
	RecoTTL        time.Duration
	ActivityWindow time.Duration
	MaxEvents      int
	CandidateLimit int

	WeightAvgRating      float64
	WeightPopularity     float64
	WeightRecencyPenalty float64
}

func LoadConfig() Config {
	return Config{
		Port:         getenv("PORT", "8080"),
		CacheBackend: getenv("CACHE_BACKEND", "memory"),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),
		MySQLDSN:     getenv("MYSQL_DSN", "moviehub:moviehub@tcp(127.0.0.1:3306)/moviehub?parseTime=true"),
		MongoURI:     getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDBName:  getenv("MONGO_DB", "moviehub"),

		ListingTTL:     getenvDuration("LISTING_CACHE_TTL", listing.DefaultTTL),
		RecoTTL:        getenvDuration("RECO_CACHE_TTL", 15*time.Minute),
		ActivityWindow: getenvDuration("ACTIVITY_WINDOW", 90*24*time.Hour),
		MaxEvents:      getenvInt("ACTIVITY_MAX_EVENTS", 200),
		CandidateLimit: getenvInt("RECO_CANDIDATE_LIMIT", 500),

		WeightAvgRating:      getenvFloat("RECO_WEIGHT_RATING", reco.DefaultWeights.AvgRating),
		WeightPopularity:     getenvFloat("RECO_WEIGHT_POPULARITY", reco.DefaultWeights.Popularity),
		WeightRecencyPenalty: getenvFloat("RECO_WEIGHT_RECENCY", reco.DefaultWeights.RecencyPenalty),
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := LoadConfig()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("mongo_db", cfg.MongoDBName),
		zap.Duration("listing_ttl", cfg.ListingTTL),
		zap.Duration("reco_ttl", cfg.RecoTTL),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Relational catalog (MySQL) -----
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Error("mysql open failed", zap.Error(err))
		return err
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("mysql connection failed", zap.Error(err))
		return err
	}
	logger.Info("mysql connection established")

	// ----- Document activity store (MongoDB) -----
	mongoCtx, cancelMongo := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelMongo()
	mongoClient, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Error("mongo connection failed", zap.Error(err))
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongoClient.Ping(mongoCtx, nil); err != nil {
		logger.Error("mongo ping failed", zap.Error(err))
		return err
	}
	logger.Info("mongo connection established")

	// ----- Cache backend -----
	backend := cache.NewBackend(cache.Config{
		Backend:         cfg.CacheBackend,
		CleanupInterval: 5 * time.Minute,
		Prefix:          "moviehub",
	}, redisClient)
	if closer, ok := backend.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	backend = cache.NewLoggingBackend(backend)

	// ----- Stores + cache layers -----
	catalogStore := catalog.NewSQLStore(db, 5*time.Second)
	activityStore := activity.NewMongoStore(mongoClient.Database(cfg.MongoDBName), 5*time.Second)

	listings := listing.New(backend, catalogStore, cfg.ListingTTL)
	engine := reco.New(backend, catalogStore, activityStore, reco.Config{
		TTL: cfg.RecoTTL,
		Window: activity.Window{
			Since:     cfg.ActivityWindow,
			MaxEvents: cfg.MaxEvents,
		},
		CandidateLimit: cfg.CandidateLimit,
		Weights: reco.Weights{
			AvgRating:      cfg.WeightAvgRating,
			Popularity:     cfg.WeightPopularity,
			RecencyPenalty: cfg.WeightRecencyPenalty,
		},
	})

	// ----- Invalidation bus -----
	bus := invalidation.NewInProcess()
	defer bus.Close()
	hooks := invalidation.NewHooks(bus)

	busCtx, cancelBus := context.WithCancel(logging.WithLogger(context.Background(), logger))
	defer cancelBus()
	go func() {
		if err := bus.Run(busCtx, invalidation.Applier(listings, engine)); err != nil {
			logger.Error("invalidation consumer stopped", zap.Error(err))
		}
	}()

	// ----- Handlers -----
	moviesHandler := handlers.NewMoviesHandler(listings)
	recoHandler := handlers.NewRecommendationsHandler(engine)
	hooksHandler := handlers.NewHooksHandler(hooks)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, moviesHandler, recoHandler, hooksHandler)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting server",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
