package exec

import (
	"context"
	"sync"

	"github.com/wolfleong/gobatis/cachedec"
	"github.com/wolfleong/gobatis/cachekey"
	"github.com/wolfleong/gobatis/mapping"
)

// Caching wraps another Executor with a second-level (namespace-scoped,
// cross-session) cache lookup that sits behind the wrapped executor's
// first-level cache: it checks the statement's namespace cache after the
// first-level cache, and schedules a clear on any flagged write, applied
// at the next Commit or Rollback rather than immediately.
type Caching struct {
	delegate Executor

	mu      sync.Mutex
	pending map[cachedec.Cache]struct{} // caches flagged for clear at next flush/commit
}

func NewCaching(delegate Executor) *Caching {
	return &Caching{delegate: delegate, pending: make(map[cachedec.Cache]struct{})}
}

func (c *Caching) Query(ctx context.Context, ms *mapping.MappedStatement, parameter any, handler ResultHandler) ([]any, error) {
	if ms.FlushCache {
		c.scheduleFlush(ms)
	}
	if !ms.UseCache || ms.Cache == nil || handler != nil {
		return c.delegate.Query(ctx, ms, parameter, handler)
	}

	key := c.delegate.CreateCacheKey(ms, parameter, 0, -1)
	if v, ok := ms.Cache.Get(key.HashCode()); ok {
		if rows, ok := v.([]any); ok {
			return rows, nil
		}
	}

	rows, err := c.delegate.Query(ctx, ms, parameter, nil)
	if err != nil {
		return nil, err
	}
	ms.Cache.Put(key.HashCode(), rows)
	return rows, nil
}

func (c *Caching) Update(ctx context.Context, ms *mapping.MappedStatement, parameter any) (int64, error) {
	if ms.FlushCache {
		c.scheduleFlush(ms)
	}
	return c.delegate.Update(ctx, ms, parameter)
}

func (c *Caching) scheduleFlush(ms *mapping.MappedStatement) {
	if ms.Cache == nil {
		return
	}
	c.mu.Lock()
	c.pending[ms.Cache] = struct{}{}
	c.mu.Unlock()
}

func (c *Caching) CreateCacheKey(ms *mapping.MappedStatement, parameter any, rowOffset, rowLimit int) *cachekey.Key {
	return c.delegate.CreateCacheKey(ms, parameter, rowOffset, rowLimit)
}

func (c *Caching) FlushStatements(ctx context.Context) error {
	return c.delegate.FlushStatements(ctx)
}

func (c *Caching) Commit(ctx context.Context) error {
	if err := c.delegate.Commit(ctx); err != nil {
		return err
	}
	c.applyPendingFlushes()
	return nil
}

func (c *Caching) Rollback(ctx context.Context) error {
	err := c.delegate.Rollback(ctx)
	c.applyPendingFlushes()
	return err
}

func (c *Caching) applyPendingFlushes() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[cachedec.Cache]struct{})
	c.mu.Unlock()
	for cache := range pending {
		cache.Clear()
	}
}

func (c *Caching) DeferLoad(ms *mapping.MappedStatement, key *cachekey.Key, targetType any) *DeferredLoad {
	return c.delegate.DeferLoad(ms, key, targetType)
}

func (c *Caching) Close() error {
	return c.delegate.Close()
}

// setEnvironmentID satisfies Session.SetEnvironmentID's delegation
// interface by forwarding to the wrapped executor's BaseExecutor.
func (c *Caching) setEnvironmentID(id string) {
	if setter, ok := c.delegate.(interface{ setEnvironmentID(string) }); ok {
		setter.setEnvironmentID(id)
	}
}
