package invalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"moviehub-backend/pkg/logging"
)

// Topic carries every invalidation scope. A single topic is enough: the
// payload's Kind routes the eviction.
const Topic = "cache.invalidation"

// Bus fans invalidation scopes out from the write paths to the cache
// layers. The transport is any watermill publisher/subscriber pair; the
// in-process gochannel transport is the default, a broker-backed one
// drops in for multi-replica setups.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// New wraps an existing watermill publisher/subscriber pair.
func New(publisher message.Publisher, subscriber message.Subscriber) *Bus {
	return &Bus{publisher: publisher, subscriber: subscriber}
}

// NewInProcess creates a bus on watermill's gochannel Pub/Sub.
func NewInProcess() *Bus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	return &Bus{publisher: pubSub, subscriber: pubSub}
}

// Publish emits one invalidation scope. At-least-once: consumers may see
// the same scope more than once.
func (b *Bus) Publish(ctx context.Context, scope Scope) error {
	payload, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("marshal invalidation scope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}

	logging.L(ctx).Info("invalidation_published", zap.String("scope", scope.String()))
	return nil
}

// Run consumes scopes and applies them until ctx is cancelled. A failed
// apply is nacked for redelivery; eviction is idempotent so redelivery
// is safe.
func (b *Bus) Run(ctx context.Context, apply func(ctx context.Context, scope Scope) error) error {
	msgs, err := b.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe invalidation: %w", err)
	}

	logger := logging.L(ctx)

	for msg := range msgs {
		var scope Scope
		if err := json.Unmarshal(msg.Payload, &scope); err != nil {
			// Undecodable payloads can never succeed; drop them.
			logger.Error("invalidation_decode_error", zap.Error(err))
			msg.Ack()
			continue
		}

		if err := apply(ctx, scope); err != nil {
			logger.Warn("invalidation_apply_error",
				zap.String("scope", scope.String()),
				zap.Error(err),
			)
			msg.Nack()
			continue
		}

		logger.Info("invalidation_applied", zap.String("scope", scope.String()))
		msg.Ack()
	}

	return nil
}

// Close shuts down the transport.
func (b *Bus) Close() error {
	pubErr := b.publisher.Close()

	var subErr error
	if any(b.subscriber) != any(b.publisher) {
		subErr = b.subscriber.Close()
	}

	if pubErr != nil {
		return pubErr
	}
	return subErr
}
