package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/goalcast/internal/domain/model"
)

// Store holds serialized slates with a time-to-live.
type Store interface {
	// Get returns the slate for day; ok is false on a miss.
	Get(ctx context.Context, day model.Day) (s model.Slate, ok bool, err error)
	Set(ctx context.Context, s model.Slate, ttl time.Duration) error
	Delete(ctx context.Context, day model.Day) error
	Close() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[model.Day]memoryEntry
}

type memoryEntry struct {
	slate   model.Slate
	expires time.Time
}

// NewMemoryStore creates an empty store. now may be nil.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[model.Day]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, day model.Day) (model.Slate, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[day]
	if !ok {
		return model.Slate{}, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, day)
		return model.Slate{}, false, nil
	}
	return e.slate, true, nil
}

func (m *MemoryStore) Set(_ context.Context, s model.Slate, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.Date] = memoryEntry{slate: s, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, day model.Day) error {
	m.mu.Lock()
	delete(m.entries, day)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

const redisKeyPrefix = "goalcast:slate:"

// RedisStore keeps slates as JSON values with a Redis TTL, so several API
// replicas share one schedule fetch.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(c *redis.Client) *RedisStore {
	return &RedisStore{client: c}
}

func redisKey(day model.Day) string { return redisKeyPrefix + day.String() }

func (r *RedisStore) Get(ctx context.Context, day model.Day) (model.Slate, bool, error) {
	val, err := r.client.Get(ctx, redisKey(day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Slate{}, false, nil
	}
	if err != nil {
		return model.Slate{}, false, err
	}
	var s model.Slate
	if err := json.Unmarshal(val, &s); err != nil {
		return model.Slate{}, false, fmt.Errorf("decode cached slate: %w", err)
	}
	return s, true, nil
}

func (r *RedisStore) Set(ctx context.Context, s model.Slate, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(s.Date), data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, day model.Day) error {
	return r.client.Del(ctx, redisKey(day)).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
