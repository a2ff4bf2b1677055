package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultStore remembers successful charges by idempotency key.
type ResultStore interface {
	Get(ctx context.Context, key string) (*Charge, bool, error)
	Put(ctx context.Context, key string, charge *Charge) error
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return "payment:charge:" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Charge, bool, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("payment.RedisStore.Get: %w", err)
	}

	var charge Charge
	if err := json.Unmarshal(data, &charge); err != nil {
		return nil, false, fmt.Errorf("payment.RedisStore.Get: decode: %w", err)
	}
	return &charge, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, charge *Charge) error {
	data, err := json.Marshal(charge)
	if err != nil {
		return fmt.Errorf("payment.RedisStore.Put: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("payment.RedisStore.Put: %w", err)
	}
	return nil
}

// MemoryStore keeps charge results in process memory when Redis is disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	charges map[string]Charge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{charges: make(map[string]Charge)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Charge, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.charges[key]
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, charge *Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.charges[key] = *charge
	return nil
}
