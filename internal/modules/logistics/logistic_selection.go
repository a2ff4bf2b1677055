package logistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cold-storage-marketplace/internal/models"

	"github.com/redis/go-redis/v9"
)

// SelectionTTL is how long a picked plan is remembered before checkout.
const SelectionTTL = 30 * time.Minute

// SelectionStore keeps the plan a user picked until the subscription form is submitted.
type SelectionStore interface {
	Save(ctx context.Context, sel models.LogisticsSelection) error
	// Get returns models.ErrNotFound once the selection expired or never existed.
	Get(ctx context.Context, selectionID string) (*models.LogisticsSelection, error)
}

type RedisSelectionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSelectionStore(rdb *redis.Client, ttl time.Duration) *RedisSelectionStore {
	if ttl <= 0 {
		ttl = SelectionTTL
	}
	return &RedisSelectionStore{rdb: rdb, ttl: ttl}
}

func selectionKey(id string) string {
	return "logistics:selection:" + id
}

func (s *RedisSelectionStore) Save(ctx context.Context, sel models.LogisticsSelection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("selection.Save.Marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, selectionKey(sel.SelectionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("selection.Save: %w", err)
	}
	return nil
}

func (s *RedisSelectionStore) Get(ctx context.Context, selectionID string) (*models.LogisticsSelection, error) {
	data, err := s.rdb.Get(ctx, selectionKey(selectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selection.Get: %w", err)
	}

	var sel models.LogisticsSelection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("selection.Get.Unmarshal: %w", err)
	}
	return &sel, nil
}

// MemorySelectionStore is a process-local SelectionStore without expiry, used
// when Redis is disabled.
type MemorySelectionStore struct {
	mu         sync.Mutex
	selections map[string]models.LogisticsSelection
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{selections: make(map[string]models.LogisticsSelection)}
}

func (s *MemorySelectionStore) Save(_ context.Context, sel models.LogisticsSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[sel.SelectionID] = sel
	return nil
}

func (s *MemorySelectionStore) Get(_ context.Context, selectionID string) (*models.LogisticsSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[selectionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &sel, nil
}
