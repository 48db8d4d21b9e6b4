package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when no live entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned when a stored entry cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores media server responses in Redis.
//
// Every stored key is also added to the index set of its Scope, so all
// responses of one server and user can be dropped with Invalidate after the
// server side changed. The index lives at least as long as its longest entry.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a Manager on top of redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get returns the live entry for key or ErrCacheMiss. Expired entries found
// in Redis are removed.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry := &CacheEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// Set stores entry until its Expires and records key in its scope index.
// Entries that are already expired are skipped.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	redisKey := key.String()
	index := key.Scope().IndexKey()

	pipe := m.redis.TxPipeline()
	pipe.Set(ctx, redisKey, data, ttl)
	pipe.SAdd(ctx, index, redisKey)
	pipe.ExpireNX(ctx, index, ttl)
	pipe.ExpireGT(ctx, index, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	StoredBytes.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	redisKey := key.String()

	pipe := m.redis.TxPipeline()
	pipe.Del(ctx, redisKey)
	pipe.SRem(ctx, key.Scope().IndexKey(), redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Revalidate stores entry again after the server answered 304 Not Modified,
// keeping its body and moving its expiry to expires.
func (m *Manager) Revalidate(ctx context.Context, key CacheKey, entry *CacheEntry, expires time.Time) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	entry.Revalidated(time.Now(), expires)
	if err := m.Set(ctx, key, entry); err != nil {
		return err
	}

	NotModified.Inc()
	return nil
}

// Invalidate removes every entry stored under scope and returns how many
// were still present. Keys stored concurrently stay indexed.
func (m *Manager) Invalidate(ctx context.Context, scope Scope) (int, error) {
	index := scope.IndexKey()

	keys, err := m.redis.SMembers(ctx, index).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis smembers %s: %w", index, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}

	pipe := m.redis.TxPipeline()
	deleted := pipe.Del(ctx, keys...)
	pipe.SRem(ctx, index, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis invalidate %s: %w", index, err)
	}

	n := int(deleted.Val())
	Invalidated.Add(float64(n))
	return n, nil
}
