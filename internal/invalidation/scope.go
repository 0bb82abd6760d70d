package invalidation

import "strconv"

// Kind names an invalidation scope class.
type Kind string

const (
	// KindListingAll wipes the whole listing namespace. Filters are
	// unbounded, so a movie mutation cannot be mapped to the exact set
	// of affected keys.
	KindListingAll Kind = "listing_all"

	// KindRecoUser evicts one user's recommendation entry.
	KindRecoUser Kind = "reco_user"
)

// Scope is the payload published on a write-path mutation. Delivery is
// at-least-once; consumers must treat duplicates as no-ops.
type Scope struct {
	Kind   Kind  `json:"kind"`
	UserID int64 `json:"user_id,omitempty"`
}

// ListingAll is the scope for any movie create/update.
func ListingAll() Scope {
	return Scope{Kind: KindListingAll}
}

// RecommendationFor is the scope for a new rating or watch event.
func RecommendationFor(userID int64) Scope {
	return Scope{Kind: KindRecoUser, UserID: userID}
}

func (s Scope) String() string {
	if s.Kind == KindRecoUser {
		return string(s.Kind) + ":" + strconv.FormatInt(s.UserID, 10)
	}
	return string(s.Kind)
}
