package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/NomadicDaddy/automaker/internal/util"
)

var sessionBucket = []byte("sessions")

// BoltSessionStore stores sessions in a bbolt database so they survive
// server restarts. Create and Invalidate are committed before returning, so
// a session never exists in memory without its backing record or vice versa.
type BoltSessionStore struct {
	db       *bbolt.DB
	ttl      time.Duration
	ownsDB   bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ SessionStore = (*BoltSessionStore)(nil)

// NewBoltSessionStore returns a session store backed by the given database.
func NewBoltSessionStore(db *bbolt.DB) (*BoltSessionStore, error) {
	return newBoltSessionStore(db, SessionTTL, false)
}

// NewBoltSessionStoreFromFile opens a bbolt database at the given path and
// returns a session store that owns it. Close closes the database.
func NewBoltSessionStoreFromFile(path string) (*BoltSessionStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	return newBoltSessionStore(db, SessionTTL, true)
}

func newBoltSessionStore(db *bbolt.DB, ttl time.Duration, ownsDB bool) (*BoltSessionStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating session bucket: %w", err)
	}
	s := &BoltSessionStore{
		db:     db,
		ttl:    ttl,
		ownsDB: ownsDB,
		stopCh: make(chan struct{}),
	}
	go s.sweepLoop()
	return s, nil
}

func (s *BoltSessionStore) Create(ctx context.Context) (string, error) {
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
	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Put([]byte(token), data)
	})
	if err != nil {
		return "", fmt.Errorf("persisting session: %w", err)
	}
	return token, nil
}

func (s *BoltSessionStore) Get(ctx context.Context, token string) (Session, bool) {
	var session Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionBucket).Get([]byte(token))
		if data == nil {
			return fmt.Errorf("session not found")
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return Session{}, false
	}
	if session.Expired(time.Now()) {
		_ = s.Invalidate(ctx, token)
		return Session{}, false
	}
	return session, true
}

func (s *BoltSessionStore) Invalidate(ctx context.Context, token string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionBucket).Delete([]byte(token))
	})
}

// Close stops the background sweep and, if the store opened the database
// itself, closes it.
func (s *BoltSessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *BoltSessionStore) sweepLoop() {
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

func (s *BoltSessionStore) sweepExpired(now time.Time) {
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var session Session
			if err := json.Unmarshal(v, &session); err != nil {
				// Corrupt entry, remove it.
				if err := c.Delete(); err != nil {
					return err
				}
				continue
			}
			if session.Expired(now) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
