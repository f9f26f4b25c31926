package auth

import (
	"context"
	"sync"
	"time"

	"github.com/NomadicDaddy/automaker/internal/util"
)

const sweepInterval = 5 * time.Minute

// MemorySessionStore is a thread-safe in-memory SessionStore. Sessions are
// lost on server restart.
//
// Expired sessions are evicted lazily on Get; a background sweep also removes
// entries that are never looked up again, so abandoned sessions cannot grow
// the map without bound.
type MemorySessionStore struct {
	mu       sync.RWMutex
	data     map[string]Session
	ttl      time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an in-memory session store with the default
// session lifetime.
func NewMemorySessionStore() *MemorySessionStore {
	return NewMemorySessionStoreTTL(SessionTTL)
}

// NewMemorySessionStoreTTL creates an in-memory session store with an
// explicit session lifetime. Intended for tests that need fast expiry.
func NewMemorySessionStoreTTL(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		data:   make(map[string]Session),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *MemorySessionStore) Create(ctx context.Context) (string, error) {
	token, err := util.RandomToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	session := Session{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.data[token] = session
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, token string) (Session, bool) {
	s.mu.RLock()
	session, ok := s.data[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if session.Expired(time.Now()) {
		_ = s.Invalidate(ctx, token)
		return Session{}, false
	}
	return session, true
}

func (s *MemorySessionStore) Invalidate(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
	return nil
}

// Close stops the background sweep.
func (s *MemorySessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemorySessionStore) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepExpired(time.Now())
		}
	}
}

func (s *MemorySessionStore) sweepExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.data {
		if session.Expired(now) {
			delete(s.data, token)
		}
	}
}
