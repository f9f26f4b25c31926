package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NomadicDaddy/automaker/internal/util"
)

const redisSessionPrefix = "automaker:session:"

// RedisSessionStore stores sessions in redis, for deployments where the
// gatekeeper runs as more than one process. Expiry rides on redis key TTLs,
// so no background sweep is needed; ExpiresAt is still checked on read to
// keep the absent-once-expired contract exact under clock skew.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore creates a redis-backed session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: SessionTTL}
}

// NewRedisSessionStoreTTL creates a redis-backed session store with an
// explicit session lifetime. Intended for tests that need fast expiry.
func NewRedisSessionStoreTTL(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context) (string, error) {
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
	if err := s.client.Set(ctx, redisSessionPrefix+token, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("persisting session: %w", err)
	}
	return token, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (Session, bool) {
	data, err := s.client.Get(ctx, redisSessionPrefix+token).Bytes()
	if err != nil {
		return Session{}, false
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false
	}
	if session.Expired(time.Now()) {
		_ = s.Invalidate(ctx, token)
		return Session{}, false
	}
	return session, true
}

func (s *RedisSessionStore) Invalidate(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisSessionPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Close() error {
	return nil
}
