package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "telewatch:tenant-mutation:"

// TenantLocker serializes mutations to a single tenant's group/account
// state so the load balancer's rebalance never races a
// concurrent CRUD call. One lock per tenant, held for the duration of the
// mutation.
type TenantLocker interface {
	Lock(ctx context.Context, tenantID string, ttl time.Duration) (Unlock, error)
}

type Unlock func(ctx context.Context) error

// RedisLocker backs the lock with Redis SET NX EX so multiple replicas of
// the control surface coordinate correctly.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Lock(ctx context.Context, tenantID string, ttl time.Duration) (Unlock, error) {
	key := keyPrefix + tenantID
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock: tenant %s already locked", tenantID)
	}
	return func(ctx context.Context) error {
		return l.rdb.Del(ctx, key).Err()
	}, nil
}

// MutexLocker is the in-process fallback used when no Redis endpoint is
// configured (single-replica deployments); it never blocks the caller
// across process restarts, unlike RedisLocker's TTL-bounded key.
type MutexLocker struct {
	mu        sync.Mutex
	perTenant map[string]*sync.Mutex
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{perTenant: make(map[string]*sync.Mutex)}
}

func (l *MutexLocker) Lock(_ context.Context, tenantID string, _ time.Duration) (Unlock, error) {
	l.mu.Lock()
	m, ok := l.perTenant[tenantID]
	if !ok {
		m = &sync.Mutex{}
		l.perTenant[tenantID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func(_ context.Context) error {
		m.Unlock()
		return nil
	}, nil
}
