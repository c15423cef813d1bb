package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the only server side session state the session
// manager owns: the set of refresh token IDs that have been logged out.
// Entries expire with their token, nothing outlives its natural TTL.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationStore keeps the blacklist in process. Suitable for a
// single instance deployment and for tests.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock overrides the time source, mostly for tests.
func (s *MemoryRevocationStore) WithClock(now func() time.Time) *MemoryRevocationStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[jti] = s.now().Add(ttl)

	// Opportunistic sweep so the map does not grow unbounded.
	now := s.now()
	for key, expires := range s.entries {
		if expires.Before(now) {
			delete(s.entries, key)
		}
	}

	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expires, ok := s.entries[jti]
	if !ok {
		return false, nil
	}

	return expires.After(s.now()), nil
}

// RedisRevocationStore shares the blacklist between instances through
// Redis, letting the key TTL do the expiry work.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: "auth:revoked:",
	}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.Set(ctx, s.prefix+jti, "1", ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var (
	_ RevocationStore = (*MemoryRevocationStore)(nil)
	_ RevocationStore = (*RedisRevocationStore)(nil)
)
