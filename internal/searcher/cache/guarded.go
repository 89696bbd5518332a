package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/resilience"
)

// GuardedStore bounds every read and write by a timeout and routes it
// through a circuit breaker. A key-not-found reply counts as success.
type GuardedStore struct {
	store   Store
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

func NewGuardedStore(store Store, breaker *resilience.CircuitBreaker, timeout time.Duration) *GuardedStore {
	return &GuardedStore{store: store, breaker: breaker, timeout: timeout}
}

func (g *GuardedStore) Get(ctx context.Context, key string) (string, error) {
	var (
		value  string
		getErr error
	)
	err := g.breaker.Execute(func() error {
		return resilience.CallWithin(ctx, g.timeout, "cache-get", func(ctx context.Context) error {
			value, getErr = g.store.Get(ctx, key)
			if redis.IsNilError(getErr) {
				return nil
			}
			return getErr
		})
	})
	if err != nil {
		return "", err
	}
	return value, getErr
}

func (g *GuardedStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return resilience.CallWithin(ctx, g.timeout, "cache-set", func(ctx context.Context) error {
			return g.store.Set(ctx, key, value, ttl)
		})
	})
}

// FlushByPattern bypasses the breaker.
func (g *GuardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	return g.store.FlushByPattern(ctx, pattern)
}
