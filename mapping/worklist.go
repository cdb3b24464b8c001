package mapping

import (
	"sync"

	"github.com/wolfleong/gobatis/merr"
)

// resolution is the outcome of one attempt to resolve a pending entry.
type resolution int

const (
	resolved resolution = iota
	pending
)

// thunk retries resolving one deferred entry; it returns (resolved, nil)
// on success, (pending, cause) if the dependency still isn't available.
type thunk func() (resolution, error)

// worklist is a FIFO of retryable thunks, one per kind of forward
// reference (incomplete cache-refs, incomplete result-maps, incomplete
// statements, incomplete methods). It is safe for concurrent
// registration during bootstrap.
type worklist struct {
	kind string
	mu   sync.Mutex
	ids  []string
	work []thunk
}

func newWorklist(kind string) *worklist {
	return &worklist{kind: kind}
}

func (w *worklist) add(id string, t thunk) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, id)
	w.work = append(w.work, t)
}

// drain retries every pending thunk once, removing those that resolve.
// It returns how many resolved this pass (the caller iterates until a
// pass resolves nothing, i.e. the worklist has reached a fixed point).
func (w *worklist) drain() (int, error) {
	w.mu.Lock()
	ids := w.ids
	work := w.work
	w.ids = nil
	w.work = nil
	w.mu.Unlock()

	var remainingIDs []string
	var remainingWork []thunk
	var lastErr error
	resolvedCount := 0
	for i, t := range work {
		res, err := t()
		switch res {
		case resolved:
			resolvedCount++
		case pending:
			remainingIDs = append(remainingIDs, ids[i])
			remainingWork = append(remainingWork, t)
			lastErr = err
		}
	}

	w.mu.Lock()
	w.ids = append(remainingIDs, w.ids...)
	w.work = append(remainingWork, w.work...)
	w.mu.Unlock()

	return resolvedCount, lastErr
}

func (w *worklist) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.work)
}

// finalize retries the entries still pending once the worklist has
// converged and returns a BuilderError for the first one that still
// fails.
func (w *worklist) finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.work) == 0 {
		return nil
	}
	for i, t := range w.work {
		if _, err := t(); err != nil {
			return merr.NewBuilderError(w.ids[i], w.kind, err)
		}
	}
	return nil
}

// worklists bundles the four deferred-resolution queues.
type worklists struct {
	cacheRefs  *worklist
	resultMaps *worklist
	statements *worklist
	methods    *worklist
}

func newWorklists() worklists {
	return worklists{
		cacheRefs:  newWorklist("cache-ref"),
		resultMaps: newWorklist("result-map"),
		statements: newWorklist("statement"),
		methods:    newWorklist("method"),
	}
}

func (w worklists) all() []*worklist {
	return []*worklist{w.cacheRefs, w.resultMaps, w.statements, w.methods}
}

// DrainWorklists iterates every worklist to a fixed point: each pass
// retries every pending thunk, and passes continue until a pass resolves
// nothing across all four lists. Progress is monotonic, so this
// terminates in O(N) passes over the total number of entries. The first
// entry still pending after convergence is reported as a BuilderError.
func (c *Configuration) DrainWorklists() error {
	for {
		progressed := 0
		for _, w := range c.worklists.all() {
			n, _ := w.drain()
			progressed += n
		}
		if progressed == 0 {
			break
		}
	}
	for _, w := range c.worklists.all() {
		if err := w.finalize(); err != nil {
			return err
		}
	}
	return nil
}

// DeferCacheRef enqueues a cache-ref that could not be resolved because
// refNamespace has not registered its cache yet.
func (c *Configuration) DeferCacheRef(namespace, refNamespace string) {
	c.worklists.cacheRefs.add(namespace, func() (resolution, error) {
		if _, ok := c.GetCache(refNamespace); ok {
			c.AddCacheRef(namespace, refNamespace)
			return resolved, nil
		}
		return pending, merr.ErrCacheNotFound
	})
}

// DeferResultMapExtends enqueues a child result map whose parent was not
// yet registered at parse time.
func (c *Configuration) DeferResultMapExtends(child *ResultMap, parentID string) {
	c.worklists.resultMaps.add(child.ID, func() (resolution, error) {
		if err := c.MergeResultMapExtends(child, parentID); err != nil {
			return pending, err
		}
		return resolved, nil
	})
}

// DeferStatement enqueues a statement whose result map (or other
// dependency) was not yet available; resolve is retried each pass and
// should itself be idempotent.
func (c *Configuration) DeferStatement(id string, resolve func() error) {
	c.worklists.statements.add(id, func() (resolution, error) {
		if err := resolve(); err != nil {
			return pending, err
		}
		return resolved, nil
	})
}

// DeferMethod enqueues an annotated-interface method whose dependency
// (e.g. a @ResultMap reference) was not yet available.
func (c *Configuration) DeferMethod(id string, resolve func() error) {
	c.worklists.methods.add(id, func() (resolution, error) {
		if err := resolve(); err != nil {
			return pending, err
		}
		return resolved, nil
	})
}
