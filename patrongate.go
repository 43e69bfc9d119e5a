package patrongate

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Seann-Moser/patrongate/observability"
	"github.com/Seann-Moser/patrongate/patreon"
	"github.com/Seann-Moser/patrongate/session"
	"github.com/Seann-Moser/patrongate/store"
)

type contextKey string

const identityKey contextKey = "PATRON_IDENTITY"

// Identity is the authenticated patron attached to a request by the
// Manager middleware. Snapshot is lazy: nothing talks to Patreon until a
// consumer actually needs membership data.
type Identity struct {
	Patron *store.Patron

	client patreon.Service
}

// NewIdentity binds a credential record to the client its lazy snapshot
// accessor uses.
func NewIdentity(patron *store.Patron, client patreon.Service) *Identity {
	return &Identity{Patron: patron, client: client}
}

// Snapshot fetches fresh identity + membership data using the (possibly
// just-refreshed) access token. One network round trip per call; callers
// that need both verification and tier details should fetch once and reuse.
func (id *Identity) Snapshot(ctx context.Context) (*patreon.IdentitySnapshot, error) {
	return id.client.FetchIdentity(ctx, id.Patron.AccessToken)
}

// IdentityFromContext returns the authenticated identity, or nil when the
// request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// Manager owns the per-request credential lifecycle: load the record for
// the session's patron, refresh the token when it is expired or inside the
// expiry buffer, persist the rotated triple, and attach the identity to the
// request context. Refresh failures demote the request to unauthenticated
// instead of erroring.
type Manager struct {
	store   store.Store
	patreon patreon.Service
	secret  []byte
	logger  *observability.Logger

	// now is injected for tests.
	now func() time.Time
}

// NewManager constructs a Manager. All collaborators are required; there is
// no lazy global fallback.
func NewManager(st store.Store, client patreon.Service, sessionSecret []byte, logger *observability.Logger) *Manager {
	return &Manager{
		store:   st,
		patreon: client,
		secret:  sessionSecret,
		logger:  logger,
		now:     time.Now,
	}
}

// Middleware resolves the session to an authenticated identity before the
// next handler runs.
//
// No session, or a session pointing at a purged record, means the request
// proceeds unauthenticated (the stale cookie is cleared in the latter case).
// A reachable record with a fresh token is attached as-is. An expired token
// is refreshed and the new triple persisted; if the refresh is rejected the
// session is cleared and the request proceeds unauthenticated rather than
// failing. Two concurrent requests for the same patron may both refresh;
// the last persisted triple wins and both are usable.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ses, err := session.GetSessionFromCookie(r, m.secret)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		patron, err := m.store.Get(r.Context(), ses.PatreonID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Session references a record that no longer exists.
				session.ClearSessionCookie(w, r)
			} else {
				// Store unreachable is degraded service, not a logout; keep
				// the cookie so the user recovers when the store does.
				m.logger.Error("credential_store_unavailable", map[string]any{"error": err.Error()})
			}
			next.ServeHTTP(w, r)
			return
		}

		if patron.TokenExpired(m.now()) {
			pair, err := m.patreon.Refresh(r.Context(), patron.RefreshToken)
			if err != nil {
				m.logger.Warn("token_refresh_failed", map[string]any{
					"patreon_id": ses.PatreonID,
					"error":      err.Error(),
				})
				session.ClearSessionCookie(w, r)
				next.ServeHTTP(w, r)
				return
			}

			profile := store.Profile{
				PatreonID: patron.PatreonID,
				Email:     patron.Email,
				FullName:  patron.FullName,
			}
			if err := m.store.Upsert(r.Context(), profile, pair); err != nil {
				// The refreshed pair is valid even if we could not persist
				// it; the next request will refresh again.
				m.logger.Error("persist_refreshed_tokens_failed", map[string]any{
					"patreon_id": ses.PatreonID,
					"error":      err.Error(),
				})
			}

			patron.AccessToken = pair.AccessToken
			patron.RefreshToken = pair.RefreshToken
			patron.TokenExpiry = pair.ExpiresAt.UnixMilli()
		}

		identity := NewIdentity(patron, m.patreon)
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
