package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DenyList remembers revoked token ids until the token would have expired anyway.
type DenyList interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisDenyList struct {
	rdb *redis.Client
}

func NewRedisDenyList(rdb *redis.Client) *RedisDenyList {
	return &RedisDenyList{rdb: rdb}
}

func revokedKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

func (d *RedisDenyList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist.Revoke: %w", err)
	}
	return nil
}

func (d *RedisDenyList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist.IsRevoked: %w", err)
	}
	return n > 0, nil
}

// MemoryDenyList is a process-local DenyList for single-instance runs without Redis.
type MemoryDenyList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryDenyList() *MemoryDenyList {
	return &MemoryDenyList{revoked: make(map[string]time.Time)}
}

func (d *MemoryDenyList) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[tokenID] = expiresAt
	return nil
}

func (d *MemoryDenyList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.revoked[tokenID]
	return ok && time.Now().Before(exp), nil
}
