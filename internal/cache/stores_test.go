package cache

import (
	"context"
	"testing"
	"time"

	"cold-storage-marketplace/internal/config"
	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/internal/modules/catalog"
	"cold-storage-marketplace/internal/modules/logistics"
	"cold-storage-marketplace/internal/modules/user"
	"cold-storage-marketplace/pkg/inflight"
	"cold-storage-marketplace/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopWarehouses struct{ catalog.RepositoryInterface }

func TestNewStoresWithoutRedis(t *testing.T) {
	stores, err := NewStores(context.Background(), config.RedisConfig{Enabled: false}, time.Minute, time.Hour)
	require.NoError(t, err)

	assert.IsType(t, &inflight.MemoryGuard{}, stores.Guard)
	assert.IsType(t, &payment.MemoryStore{}, stores.Payments)
	assert.IsType(t, &logistics.MemorySelectionStore{}, stores.Selections)
	assert.IsType(t, &user.MemoryDenyList{}, stores.DenyList)

	repo := nopWarehouses{}
	assert.Equal(t, repo, stores.Warehouses(repo, time.Minute))
	assert.NoError(t, stores.Close())

	release, err := stores.Guard.Acquire(context.Background(), "booking:user-1:attempt")
	require.NoError(t, err)
	_, err = stores.Guard.Acquire(context.Background(), "booking:user-1:attempt")
	assert.ErrorIs(t, err, inflight.ErrBusy)
	release()

	require.NoError(t, stores.DenyList.Revoke(context.Background(), "jti-1", time.Now().Add(time.Hour)))
	revoked, err := stores.DenyList.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = stores.Selections.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNewStoresReportsUnreachableRedis(t *testing.T) {
	_, err := NewStores(context.Background(), config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}, time.Minute, time.Hour)
	assert.Error(t, err)
}
