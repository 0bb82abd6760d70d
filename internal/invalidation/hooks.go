package invalidation

import (
	"context"
	"fmt"
)

// Hooks is the surface the CRUD write paths call after a successful
// mutation. Each hook publishes the matching scope; eviction happens
// asynchronously, within the documented staleness bound of one cache TTL.
type Hooks struct {
	bus *Bus
}

func NewHooks(bus *Bus) *Hooks {
	return &Hooks{bus: bus}
}

// OnMovieChanged follows any movie create/update.
func (h *Hooks) OnMovieChanged(ctx context.Context) error {
	return h.bus.Publish(ctx, ListingAll())
}

// OnRatingChanged follows a rating create/update for userID.
func (h *Hooks) OnRatingChanged(ctx context.Context, userID int64) error {
	return h.bus.Publish(ctx, RecommendationFor(userID))
}

// OnWatchEventRecorded follows a watch-history append for userID.
func (h *Hooks) OnWatchEventRecorded(ctx context.Context, userID int64) error {
	return h.bus.Publish(ctx, RecommendationFor(userID))
}

// ListingInvalidator evicts the whole listing namespace.
type ListingInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// RecoInvalidator evicts one user's recommendation entry.
type RecoInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// Applier routes consumed scopes to the cache layers. Pass it to
// Bus.Run.
func Applier(listings ListingInvalidator, recos RecoInvalidator) func(ctx context.Context, scope Scope) error {
	return func(ctx context.Context, scope Scope) error {
		switch scope.Kind {
		case KindListingAll:
			return listings.InvalidateAll(ctx)
		case KindRecoUser:
			return recos.Invalidate(ctx, scope.UserID)
		default:
			return fmt.Errorf("unknown invalidation kind %q", scope.Kind)
		}
	}
}
