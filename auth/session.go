// Package auth implements the gatekeeper core for the automaker server:
// API-key validation, session lifecycle, short-lived connection tokens, and
// the composed authentication decision used by the request-gating middleware.
package auth

import (
	"context"
	"time"
)

// SessionTTL is the fixed maximum lifetime of a session. It is a policy
// constant, not configuration; tests that need shorter lifetimes construct
// stores with an explicit TTL.
const SessionTTL = 24 * time.Hour

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "automaker_session"

// Session is the server-side state for one logged-in client.
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore owns all session records. It is the only component permitted
// to mutate them; everything else reads through these accessors.
//
// All implementations are safe for concurrent use, and Invalidate
// happens-before any subsequent Get observing the session as absent. Expired
// entries are evicted lazily on Get and reported absent even before a sweep
// removes them.
type SessionStore interface {
	// Create mints a new unguessable token and inserts a session expiring
	// after the store's TTL. It fails only if the entropy source or the
	// backing storage fails; callers treat that as fatal.
	Create(ctx context.Context) (string, error)
	// Get returns the session iff it exists and has not expired.
	Get(ctx context.Context, token string) (Session, bool)
	// Invalidate removes the session if present. Removing an unknown token
	// is a no-op, never an error, so logout stays idempotent.
	Invalidate(ctx context.Context, token string) error
	// Close releases backend resources and stops any background sweep.
	Close() error
}
