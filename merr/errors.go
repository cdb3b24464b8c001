// Package merr defines the three error kinds the engine raises:
// BuilderError, IncompleteElementError and ExecutorError. Each is a plain
// struct carrying a wrapped cause; the shared sentinel errors and the
// Wrap/Wrapf helpers go through github.com/cockroachdb/errors.
package merr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// BuilderError reports an invalid mapping, an unknown reference or a
// conflicting declaration found while parsing a mapping source. It is
// always fatal to the source being parsed and is never retried.
type BuilderError struct {
	Source string // mapping source id (namespace, file, or interface FQN)
	Path   string // DOM path / annotation / attribute that triggered the error
	cause  error
}

func NewBuilderError(source, path string, cause error) *BuilderError {
	return &BuilderError{Source: source, Path: path, cause: cause}
}

func (e *BuilderError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("builder error in %q: %v", e.Source, e.cause)
	}
	return fmt.Sprintf("builder error in %q at %q: %v", e.Source, e.Path, e.cause)
}

func (e *BuilderError) Unwrap() error { return e.cause }

// IncompleteElementError marks a forward reference that may resolve once
// more of the catalog has been parsed. The Configuration's worklists
// treat it as "still pending", so callers of the builders never see it
// directly - it either resolves or is re-raised as BuilderError once
// the worklists converge.
type IncompleteElementError struct {
	Kind  string // "cache-ref" | "result-map" | "statement" | "method"
	ID    string
	cause error
}

func NewIncompleteElementError(kind, id string, cause error) *IncompleteElementError {
	return &IncompleteElementError{Kind: kind, ID: id, cause: cause}
}

func (e *IncompleteElementError) Error() string {
	return fmt.Sprintf("incomplete %s %q: %v", e.Kind, e.ID, e.cause)
}

func (e *IncompleteElementError) Unwrap() error { return e.cause }

// ExecutorError reports a runtime failure: a driver error, too many/too few
// rows from a select-key statement, ambiguous reflection, or a type
// converter failure.
type ExecutorError struct {
	StatementID string
	Op          string
	cause       error
}

func NewExecutorError(statementID, op string, cause error) *ExecutorError {
	return &ExecutorError{StatementID: statementID, Op: op, cause: cause}
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor error: statement %q, op %q: %v", e.StatementID, e.Op, e.cause)
}

func (e *ExecutorError) Unwrap() error { return e.cause }

// Sentinel errors shared across packages.
var (
	ErrStatementNotFound   = errors.New("mapped statement not found")
	ErrResultMapNotFound   = errors.New("result map not found")
	ErrCacheNotFound       = errors.New("cache not found for namespace")
	ErrAmbiguousProperty   = errors.New("ambiguous property getter")
	ErrUnknownProperty     = errors.New("unknown property")
	ErrDiscriminatorCycle  = errors.New("discriminator resolution cycle detected")
	ErrNoApplicableCtor    = errors.New("no applicable constructor found")
	ErrTooManyResults      = errors.New("too many results for select-key statement")
	ErrTooFewResults       = errors.New("too few results for select-key statement")
	ErrSessionClosed       = errors.New("session is closed")
	ErrNotDynamicSqlSource = errors.New("sql source is not dynamic")
)

// Wrap is a thin re-export so callers in this module do not need to import
// cockroachdb/errors directly for the common case.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

func Wrapf(err error, format string, args ...any) error { return errors.Wrapf(err, format, args...) }
