package activity

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps activity-store I/O failures (connection loss,
// timeouts). Never cached, always propagated.
var ErrUnavailable = errors.New("activity store unavailable")

// WatchEvent is one append-only watch-history record. Immutable once
// written; this subsystem only ever reads a bounded recent window.
type WatchEvent struct {
	UserID         int64     `bson:"user_id" json:"user_id"`
	MovieID        int64     `bson:"movie_id" json:"movie_id"`
	WatchedAt      time.Time `bson:"watched_at" json:"watched_at"`
	WatchedSeconds int       `bson:"watched_seconds" json:"watched_seconds"`
	Completed      bool      `bson:"completed" json:"completed"`
}

// Window bounds how much history a recommendation run reads.
type Window struct {
	Since     time.Duration // look back this far from now
	MaxEvents int           // hard cap on returned events, newest first
}

// Store is the read surface of the document store holding watch history.
// Implemented by MongoStore (prod) and by in-memory fakes in tests.
type Store interface {
	// GetRecentActivity returns the user's watch events inside the
	// window, newest first.
	GetRecentActivity(ctx context.Context, userID int64, w Window) ([]WatchEvent, error)
}
