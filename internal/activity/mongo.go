package activity

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionWatchEvents = "watch_events"

// MongoStore implements Store over the watch_events collection.
type MongoStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewMongoStore creates an activity store reading db's watch_events
// collection. queryTimeout bounds every query; <=0 falls back to 5s.
func NewMongoStore(db *mongo.Database, queryTimeout time.Duration) *MongoStore {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &MongoStore{
		collection:   db.Collection(collectionWatchEvents),
		queryTimeout: queryTimeout,
	}
}

func (s *MongoStore) GetRecentActivity(ctx context.Context, userID int64, w Window) ([]WatchEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID}
	if w.Since > 0 {
		filter["watched_at"] = bson.M{"$gte": time.Now().Add(-w.Since)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "watched_at", Value: -1}})
	if w.MaxEvents > 0 {
		opts = opts.SetLimit(int64(w.MaxEvents))
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find watch events: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var events []WatchEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("%w: decode watch events: %v", ErrUnavailable, err)
	}

	return events, nil
}
