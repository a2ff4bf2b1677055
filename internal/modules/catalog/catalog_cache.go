package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cold-storage-marketplace/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	allWarehousesKey = "warehouses:all"
	notFoundMarker   = "notfound"
	notFoundTTL      = time.Minute
)

func warehouseKey(id int64) string {
	return fmt.Sprintf("warehouse:%d", id)
}

// CachedRepository is a read-through Redis cache over the warehouse repository.
// Redis failures are logged and the call falls through to the wrapped repository.
type CachedRepository struct {
	realRepo RepositoryInterface
	redis    *redis.Client
	ttl      time.Duration
}

func NewCachedRepository(realRepo RepositoryInterface, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{realRepo: realRepo, redis: rdb, ttl: ttl}
}

func (c *CachedRepository) ListAll(ctx context.Context) ([]models.Warehouse, error) {
	data, err := c.redis.Get(ctx, allWarehousesKey).Bytes()
	switch {
	case err == nil:
		var warehouses []models.Warehouse
		if err := json.Unmarshal(data, &warehouses); err == nil {
			return warehouses, nil
		}
		zap.L().Warn("failed to unmarshal cached warehouses (continuing with DB)", zap.Error(err))
	case errors.Is(err, redis.Nil):
	default:
		zap.L().Warn("redis error (continuing with DB)", zap.Error(err))
	}

	warehouses, err := c.realRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, allWarehousesKey, warehouses, c.ttl)
	return warehouses, nil
}

func (c *CachedRepository) FindByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	key := warehouseKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, models.ErrNotFound
		}
		var w models.Warehouse
		if err := json.Unmarshal(data, &w); err == nil {
			return &w, nil
		}
		zap.L().Warn("failed to unmarshal cached warehouse (continuing with DB)", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		zap.L().Warn("redis error (continuing with DB)", zap.Error(err))
	}

	w, err := c.realRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
				zap.L().Warn("failed to cache notfound", zap.String("key", key), zap.Error(setErr))
			}
		}
		return nil, err
	}
	c.store(ctx, key, w, c.ttl)
	return w, nil
}

func (c *CachedRepository) Create(ctx context.Context, req models.CreateWarehouseRequest) (*models.Warehouse, error) {
	w, err := c.realRepo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	// A negative entry may exist for the id the sequence just handed out.
	c.invalidate(ctx, w.ID)
	return w, nil
}

func (c *CachedRepository) Update(ctx context.Context, id int64, req models.UpdateWarehouseRequest) (*models.Warehouse, error) {
	w, err := c.realRepo.Update(ctx, id, req)
	c.invalidate(ctx, id)
	return w, err
}

func (c *CachedRepository) Delete(ctx context.Context, id int64) error {
	err := c.realRepo.Delete(ctx, id)
	c.invalidate(ctx, id)
	return err
}

func (c *CachedRepository) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		zap.L().Warn("failed to cache entry", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, id int64) {
	if err := c.redis.Del(ctx, warehouseKey(id), allWarehousesKey).Err(); err != nil {
		zap.L().Warn("failed to invalidate warehouse cache", zap.Int64("warehouse_id", id), zap.Error(err))
	}
}
