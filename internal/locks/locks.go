// Package locks guards payment confirmation against concurrent
// duplicate submissions for the same gateway order.
package locks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockTTL = 30 * time.Second

// Locker serializes work on a single key across submissions. TryAcquire
// reports false when another holder is active; release is the returned
// function.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

type redisLocker struct {
	client *redis.Client
}

// NewRedis locks through redis SETNX so confirmations stay serialized
// across replicas.
func NewRedis(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	lockKey := "order_lock:" + key
	ok, err := l.client.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		l.client.Del(context.Background(), lockKey)
	}
	return release, true, nil
}

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal is the in-process fallback for single-replica deployments
// without redis configured.
func NewLocal() Locker {
	return &localLocker{held: map[string]struct{}{}}
}

func (l *localLocker) TryAcquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return nil, false, nil
	}
	l.held[key] = struct{}{}
	release := func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}
	return release, true, nil
}
