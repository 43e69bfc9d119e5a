package session

import (
	"context"
)

type contextKey string

const (
	sessionKey contextKey = "PATRON_SESSION_DATA"
)
const sessionCookieName = "patron_session"

// Data is what the signed session cookie carries: a single opaque platform
// user ID plus an expiry. Everything else about the patron lives in the
// credential store, never in the cookie.
type Data struct {
	PatreonID string `json:"patreon_id"`
	ExpiresAt int64  `json:"expires_at"`
}

// WithContext attaches session data to context
func (d *Data) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey, d)
}
