package booking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps one Session per client id.  Get returns ErrSessionMissing
// when none is stored.
type Store interface {
	Get(ctx context.Context, clientID string) (*Session, error)
	Save(ctx context.Context, clientID string, s *Session) error
	Delete(ctx context.Context, clientID string) error
}

// MemoryStore is an in-process Store.  Sessions are deep-copied on the
// way in and out so callers never share state.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, clientID string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.data[clientID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionMissing
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, clientID string, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[clientID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	delete(m.data, clientID)
	m.mu.Unlock()
	return nil
}

// RedisStore keeps sessions as JSON strings under "prefix:clientID".  Every
// write refreshes the TTL so abandoned flows expire on their own.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore.  A non-positive ttl stores keys
// without expiry.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "booking:session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(clientID string) string { return r.prefix + ":" + clientID }

func (r *RedisStore) Get(ctx context.Context, clientID string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionMissing
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, clientID string, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, r.key(clientID), raw, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, clientID string) error {
	return r.rdb.Del(ctx, r.key(clientID)).Err()
}

// Load returns the stored session or a fresh one when none exists.
func Load(ctx context.Context, st Store, clientID string, now time.Time) (*Session, error) {
	s, err := st.Get(ctx, clientID)
	if errors.Is(err, ErrSessionMissing) {
		return NewSession(now), nil
	}
	return s, err
}
