// Package proxyx implements the lazy-loading proxy collaborator: the
// execution core's contract with a lazy-loaded result object is limited
// to a load-registry keyed by property name, a "load all" sweep for
// serialisation boundaries, and has/remove to drive setter-invalidates-
// loader semantics. Go has no bytecode enhancement, so the default
// implementation wraps the target with an interceptor object instead of
// a dynamically generated subclass.
package proxyx

import "sync"

// Loader is the deferred-query closure registered for one lazy property.
type Loader func() (any, error)

// Factory is the ProxyFactory collaborator: wrap a target with a
// load-registry, and unwrap it back for serialisation.
type Factory interface {
	Wrap(target any, loaders map[string]Loader) any
	Unwrap(facade any) any
}

// LazyObject is the default Factory's facade: it holds the wrapped target
// in the Target field (it does not embed it, so it does not take on the
// target's methods; callers read Target and type-assert it back to their
// concrete type), plus the load-registry operations the core contract
// requires.
type LazyObject struct {
	Target any

	mu      sync.Mutex
	loaders map[string]Loader
	loaded  map[string]struct{}
}

// DefaultFactory is the proxyx.Factory default implementation, kept
// outside the core so callers can supply their own Factory instead.
type DefaultFactory struct{}

func (DefaultFactory) Wrap(target any, loaders map[string]Loader) any {
	return &LazyObject{Target: target, loaders: loaders, loaded: make(map[string]struct{})}
}

func (DefaultFactory) Unwrap(facade any) any {
	if lo, ok := facade.(*LazyObject); ok {
		lo.LoadAll()
		return lo.Target
	}
	return facade
}

// Load runs property's loader if it has not already run, returning its
// value. Go result objects have no method-call interception point
// equivalent to a getter trigger, so callers that touch a lazy property
// (result-set projection, template rendering) must call Load explicitly
// instead of relying on an intercepted getter call.
func (l *LazyObject) Load(property string) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.loaded[property]; done {
		return nil, nil
	}
	loader, ok := l.loaders[property]
	if !ok {
		return nil, nil
	}
	v, err := loader()
	if err != nil {
		return nil, err
	}
	l.loaded[property] = struct{}{}
	delete(l.loaders, property)
	return v, nil
}

// LoadAll runs every remaining loader - the "load all" sweep triggered at
// a serialisation boundary, or when a global aggressive-lazy-loading flag
// collapses "any method touches" into "load all".
func (l *LazyObject) LoadAll() {
	l.mu.Lock()
	pending := make([]string, 0, len(l.loaders))
	for k := range l.loaders {
		pending = append(pending, k)
	}
	l.mu.Unlock()
	for _, p := range pending {
		_, _ = l.Load(p)
	}
}

// Has reports whether property still has a pending (unresolved) loader.
func (l *LazyObject) Has(property string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.loaders[property]
	return ok
}

// Remove drops property's loader without running it - setter-invalidates-
// loader semantics: once the caller has explicitly set the value, the
// lazy load for it is moot.
func (l *LazyObject) Remove(property string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.loaders, property)
	l.loaded[property] = struct{}{}
}
