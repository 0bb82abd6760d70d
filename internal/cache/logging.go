package cache

import (
	"context"
	"strings"
	"time"

	"moviehub-backend/pkg/logging"

	"go.uber.org/zap"
)

// LoggingBackend wraps a Backend with structured logging.
type LoggingBackend struct {
	inner Backend
}

// NewLoggingBackend returns a backend that logs every operation.
func NewLoggingBackend(inner Backend) Backend {
	return &LoggingBackend{inner: inner}
}

func (c *LoggingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := loggerFromContext(ctx)

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}

	fields := []zap.Field{
		zap.String("cache_namespace", keyNamespace(key)),
		zap.String("cache_key", key),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Error("cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := loggerFromContext(ctx)

	fields := []zap.Field{
		zap.String("cache_namespace", keyNamespace(key)),
		zap.String("cache_key", key),
		zap.Duration("ttl", ttl),
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Error("cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_set", fields...)
	}

	return err
}

func (c *LoggingBackend) Delete(ctx context.Context, key string) error {
	err := c.inner.Delete(ctx, key)

	logger := loggerFromContext(ctx)
	fields := []zap.Field{
		zap.String("cache_namespace", keyNamespace(key)),
		zap.String("cache_key", key),
	}

	if err != nil {
		logger.Error("cache_delete", append(fields, zap.Error(err))...)
	} else {
		logger.Info("cache_delete", fields...)
	}

	return err
}

func (c *LoggingBackend) DeletePrefix(ctx context.Context, prefix string) error {
	start := time.Now()
	err := c.inner.DeletePrefix(ctx, prefix)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	logger := loggerFromContext(ctx)
	fields := []zap.Field{
		zap.String("cache_prefix", prefix),
		zap.Float64("latency_ms", latencyMs),
	}

	if err != nil {
		logger.Error("cache_delete_prefix", append(fields, zap.Error(err))...)
	} else {
		logger.Info("cache_delete_prefix", fields...)
	}

	return err
}

func loggerFromContext(ctx context.Context) *zap.Logger {
	if l := logging.FromContext(ctx); l != nil {
		return l
	}
	return logging.L(ctx)
}

// keyNamespace extracts the leading namespace segment, e.g. "listing"
// from "listing:v1:...".
func keyNamespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "unknown"
}
