package store

import (
	"context"
	"errors"
	"time"

	"github.com/Seann-Moser/patrongate/patreon"
)

// ErrNotFound means no credential record exists for the requested patron.
// Any other error from a Store means the backing store itself was
// unreachable; callers treat that as degraded service, not as a missing
// record.
var ErrNotFound = errors.New("store: patron not found")

// TokenExpiryBuffer is subtracted from the stored expiry when deciding
// whether a token still counts as valid, so a token is refreshed before it
// actually lapses mid-request.
const TokenExpiryBuffer = 5 * time.Minute

// Patron is the durable credential record for one platform user. Exactly one
// record exists per PatreonID; writes are idempotent upserts on that key.
type Patron struct {
	PatreonID string `bson:"patreonId" json:"patreonId"`
	Email     string `bson:"email" json:"email"`
	FullName  string `bson:"fullName" json:"fullName"`

	// Token triple. These three fields rotate together on every refresh
	// and are never written individually.
	AccessToken  string `bson:"accessToken" json:"-"`
	RefreshToken string `bson:"refreshToken" json:"-"`
	TokenExpiry  int64  `bson:"tokenExpiry" json:"tokenExpiry"` // epoch ms

	CreatedAt int64 `bson:"createdAt" json:"createdAt"` // epoch ms, first insert only
	UpdatedAt int64 `bson:"updatedAt" json:"updatedAt"` // epoch ms

	// Membership fields, written only by webhook ingestion. Zero until the
	// first webhook event for this patron arrives.
	MembershipStatus      string `bson:"membershipStatus,omitempty" json:"membershipStatus,omitempty"`
	MembershipAmountCents int    `bson:"membershipAmountCents,omitempty" json:"membershipAmountCents,omitempty"`
	MembershipLastUpdated int64  `bson:"membershipLastUpdated,omitempty" json:"membershipLastUpdated,omitempty"` // epoch ms
	LastEventType         string `bson:"lastEventType,omitempty" json:"lastEventType,omitempty"`
}

// TokenExpired reports whether the access token is expired or inside the
// pre-expiry buffer as of now.
func (p *Patron) TokenExpired(now time.Time) bool {
	return now.UnixMilli() >= p.TokenExpiry-TokenExpiryBuffer.Milliseconds()
}

// Profile is the denormalized identity portion of a credential record,
// overwritten on every successful token exchange.
type Profile struct {
	PatreonID string
	Email     string
	FullName  string
}

// MembershipUpdate is the delta a webhook event applies to a record. It
// never touches the token triple.
type MembershipUpdate struct {
	Status      string
	AmountCents int
	EventType   string
	At          time.Time
}

// Store defines credential record persistence keyed by platform user ID.
// Implementations must write the profile and token triple atomically and
// must surface "store unreachable" as an error distinct from ErrNotFound.
type Store interface {
	// Get loads the record for one patron, or ErrNotFound.
	Get(ctx context.Context, patreonID string) (*Patron, error)

	// Upsert writes profile + token triple together, setting CreatedAt only
	// on first insert and UpdatedAt on every write.
	Upsert(ctx context.Context, profile Profile, tokens patreon.TokenPair) error

	// ApplyMembershipUpdate writes only the membership fields. It is a no-op
	// for patrons with no record and does not validate token state.
	ApplyMembershipUpdate(ctx context.Context, patreonID string, update MembershipUpdate) error
}
