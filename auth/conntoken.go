package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NomadicDaddy/automaker/internal/util"
)

// ConnTokenTTL is the fixed, non-renewable lifetime of a connection token.
const ConnTokenTTL = 5 * time.Minute

// ErrNotAuthenticated is returned by Issue when the named session is absent
// or expired.
var ErrNotAuthenticated = errors.New("not authenticated")

// ConnectionToken is a short-lived credential derived from a valid session,
// used to authenticate connections that cannot carry cookies or headers at
// handshake time.
type ConnectionToken struct {
	Token     string
	IssuedFor string // session token it was issued against, for lookup only
	ExpiresAt time.Time
}

// Issuer mints and redeems connection tokens. Tokens live in their own
// in-memory namespace, never overlapping with session tokens, and are
// redeemable until their TTL lapses regardless of redemption count.
//
// A token stays redeemable even if its issuing session is invalidated after
// issue: the handshake it authorizes may race a logout or session expiry,
// and the five-minute TTL bounds the exposure.
type Issuer struct {
	sessions SessionStore

	mu       sync.Mutex
	tokens   map[string]ConnectionToken
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewIssuer creates a connection-token issuer bound to the given session
// store.
func NewIssuer(sessions SessionStore) *Issuer {
	i := &Issuer{
		sessions: sessions,
		tokens:   make(map[string]ConnectionToken),
		stopCh:   make(chan struct{}),
	}
	go i.sweepLoop()
	return i
}

// Issue mints a fresh connection token for the given session. It fails with
// ErrNotAuthenticated unless the session is currently valid.
func (i *Issuer) Issue(ctx context.Context, sessionToken string) (string, error) {
	if _, ok := i.sessions.Get(ctx, sessionToken); !ok {
		return "", ErrNotAuthenticated
	}
	token, err := util.RandomToken()
	if err != nil {
		return "", err
	}
	i.mu.Lock()
	i.tokens[token] = ConnectionToken{
		Token:     token,
		IssuedFor: sessionToken,
		ExpiresAt: time.Now().Add(ConnTokenTTL),
	}
	i.mu.Unlock()
	return token, nil
}

// Redeem reports whether the token exists and is still within its TTL.
// Redemption never extends the token or its parent session.
func (i *Issuer) Redeem(token string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	ct, ok := i.tokens[token]
	if !ok {
		return false
	}
	if !time.Now().Before(ct.ExpiresAt) {
		delete(i.tokens, token)
		return false
	}
	return true
}

// Close stops the background sweep.
func (i *Issuer) Close() {
	i.stopOnce.Do(func() { close(i.stopCh) })
}

func (i *Issuer) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-i.stopCh:
			return
		case <-ticker.C:
			i.sweepExpired(time.Now())
		}
	}
}

func (i *Issuer) sweepExpired(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for token, ct := range i.tokens {
		if !now.Before(ct.ExpiresAt) {
			delete(i.tokens, token)
		}
	}
}
