package exec

import (
	"context"

	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/mapping"
)

// ExecutorKind selects which concrete Executor a Session opens.
type ExecutorKind int

const (
	ExecutorSimple ExecutorKind = iota
	ExecutorBatch
	ExecutorReuse // aliases Simple: this engine has no separate statement-reuse cache to warrant a fourth implementation
)

// Session is the per-request handle a caller obtains to run statements: it
// owns one Executor (optionally wrapped by Caching), tracks whether any
// write has happened since the last commit, and cascades resource
// release on Close: rollback if dirty and non-autocommit, close the
// transaction, clear the first-level cache.
type Session struct {
	cfg        *mapping.Configuration
	executor   Executor
	tx         driverx.Transaction
	autoCommit bool
	dirty      bool
	closed     bool
}

// NewSession opens a Session backed by kind's Executor, always wrapped in
// a Caching decorator (Caching is a no-op pass-through for statements
// with UseCache false or Cache nil).
func NewSession(driver driverx.Driver, tx driverx.Transaction, cfg *mapping.Configuration, kind ExecutorKind, autoCommit bool) *Session {
	var base Executor
	switch kind {
	case ExecutorBatch:
		base = NewBatchExecutor(driver, tx, cfg)
	default:
		base = NewSimpleExecutor(driver, tx, cfg)
	}
	return &Session{
		cfg:        cfg,
		executor:   NewCaching(base),
		tx:         tx,
		autoCommit: autoCommit,
	}
}

// SetEnvironmentID overrides the random default assigned at construction
// with the configured environment's id (CacheKey's environment-id
// component), so two sessions against the same configured environment
// produce comparable CacheKeys.
func (s *Session) SetEnvironmentID(id string) {
	if be, ok := s.executor.(interface{ setEnvironmentID(string) }); ok {
		be.setEnvironmentID(id)
	}
}

func (s *Session) Query(ctx context.Context, statementID string, parameter any, handler ResultHandler) ([]any, error) {
	ms, ok := s.cfg.GetMappedStatement(statementID)
	if !ok {
		return nil, newExecutorError(statementID, "query", errUnknownStatement(statementID))
	}
	return s.executor.Query(ctx, ms, parameter, handler)
}

func (s *Session) Update(ctx context.Context, statementID string, parameter any) (int64, error) {
	ms, ok := s.cfg.GetMappedStatement(statementID)
	if !ok {
		return 0, newExecutorError(statementID, "update", errUnknownStatement(statementID))
	}
	n, err := s.executor.Update(ctx, ms, parameter)
	if err == nil {
		s.dirty = true
		if s.autoCommit {
			err = s.Commit(ctx)
		}
	}
	return n, err
}

func (s *Session) Commit(ctx context.Context) error {
	if err := s.executor.Commit(ctx); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	err := s.executor.Rollback(ctx)
	s.dirty = false
	return err
}

// Close cascades resource release: a dirty, non-autocommit
// session is rolled back before the transaction and first-level cache are
// torn down, so a caller that forgets to commit never silently persists
// a partial write.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.dirty && !s.autoCommit {
		_ = s.executor.Rollback(ctx)
	}
	return s.executor.Close()
}

func errUnknownStatement(id string) error {
	return &unknownStatementError{id: id}
}

type unknownStatementError struct{ id string }

func (e *unknownStatementError) Error() string {
	return "gobatis: no mapped statement registered for id " + e.id
}
