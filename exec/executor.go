// Package exec implements the Execution & Result-Mapping Core:
// the Executor hierarchy (Simple, Batch, Caching), the query algorithm
// with first-level (session-local) caching and deferred-load coordination,
// generated-key propagation, and result-set projection into object
// graphs with discriminator-driven polymorphism and lazy-loaded
// associations.
package exec

import (
	"context"

	"github.com/wolfleong/gobatis/cachekey"
	"github.com/wolfleong/gobatis/mapping"
)

// ResultHandler receives each projected row as it is produced; when nil,
// Query accumulates rows into the returned slice instead.
type ResultHandler func(row any)

// Executor is the polymorphic operation set every executor variant
// implements.
type Executor interface {
	Query(ctx context.Context, ms *mapping.MappedStatement, parameter any, handler ResultHandler) ([]any, error)
	Update(ctx context.Context, ms *mapping.MappedStatement, parameter any) (int64, error)
	CreateCacheKey(ms *mapping.MappedStatement, parameter any, rowOffset, rowLimit int) *cachekey.Key
	FlushStatements(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	DeferLoad(ms *mapping.MappedStatement, key *cachekey.Key, targetType any) *DeferredLoad
	Close() error
}

// DeferredLoad is a nested-query whose resolution is queued until the
// enclosing outer query completes. CanLoad holds iff the key's cached
// value is present and is not the in-flight sentinel.
type DeferredLoad struct {
	Statement  *mapping.MappedStatement
	Key        *cachekey.Key
	TargetType any

	resolve func() (any, bool)
}

// CanLoad reports whether the underlying local-cache entry has resolved
// to a real value (as opposed to being absent or still the placeholder).
func (d *DeferredLoad) CanLoad() bool {
	_, ok := d.resolve()
	return ok
}

// Load extracts the cached list backing this deferred load. Callers
// convert it to the target shape (scalar, collection, cursor) themselves
// via a result-extractor appropriate to the destination property.
func (d *DeferredLoad) Load() (any, bool) { return d.resolve() }

// placeholder is the EXECUTION_PLACEHOLDER sentinel inserted into the
// local cache while a query is in flight, so
// concurrent-within-session deferred loads can distinguish "in progress"
// from "absent".
type placeholder struct{}

var executionPlaceholder = placeholder{}

// wrapDriverErr wraps a driver-layer failure, tagging it
// with the statement id and operation name.
func wrapDriverErr(ms *mapping.MappedStatement, op string, err error) error {
	if err == nil {
		return nil
	}
	return newExecutorError(ms.ID, op, err)
}
