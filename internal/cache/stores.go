package cache

import (
	"context"
	"time"

	"cold-storage-marketplace/internal/config"
	"cold-storage-marketplace/internal/modules/catalog"
	"cold-storage-marketplace/internal/modules/logistics"
	"cold-storage-marketplace/internal/modules/user"
	"cold-storage-marketplace/pkg/inflight"
	"cold-storage-marketplace/pkg/payment"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores is the request state every API instance must see alike.
type Stores struct {
	Guard      inflight.Guard
	Payments   payment.ResultStore
	Selections logistics.SelectionStore
	DenyList   user.DenyList

	// client is nil when Redis is disabled.
	client *redis.Client
}

// NewStores builds the Redis-backed stores, or the in-memory ones when
// cfg.Enabled is false.
func NewStores(ctx context.Context, cfg config.RedisConfig, holdTTL, paymentTTL time.Duration) (*Stores, error) {
	if !cfg.Enabled {
		zap.L().Warn("redis disabled, shared state is kept in process memory")
		return &Stores{
			Guard:      inflight.NewMemoryGuard(),
			Payments:   payment.NewMemoryStore(),
			Selections: logistics.NewMemorySelectionStore(),
			DenyList:   user.NewMemoryDenyList(),
		}, nil
	}

	rdb, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Guard:      inflight.NewRedisGuard(rdb, holdTTL),
		Payments:   payment.NewRedisStore(rdb, paymentTTL),
		Selections: logistics.NewRedisSelectionStore(rdb, logistics.SelectionTTL),
		DenyList:   user.NewRedisDenyList(rdb),
		client:     rdb,
	}, nil
}

// Warehouses puts the read-through cache in front of repo when Redis is on.
func (s *Stores) Warehouses(repo catalog.RepositoryInterface, ttl time.Duration) catalog.RepositoryInterface {
	if s.client == nil {
		return repo
	}
	return catalog.NewCachedRepository(repo, s.client, ttl)
}

func (s *Stores) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
