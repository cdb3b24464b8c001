package exec

import (
	"context"

	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/mapping"
)

// batchGroup accumulates argument tuples for one (sql, MappedStatement)
// pair until the batch is flushed.
type batchGroup struct {
	ms         *mapping.MappedStatement
	sql        string
	argSets    [][]any
	parameters []any // parameter object backing each argSets entry, for post-flush key-generator processing
}

// BatchExecutor defers writes into per-statement batches, flushing them
// through the driver's batch API on FlushStatements, Commit, or whenever
// a query needs a consistent view of pending writes: it accumulates
// updates sharing an identical (SQL, MappedStatement) pair and forces a
// flush before any query.
type BatchExecutor struct {
	*BaseExecutor
	projector *Projector

	groups []*batchGroup
}

func NewBatchExecutor(driver driverx.Driver, tx driverx.Transaction, cfg *mapping.Configuration) *BatchExecutor {
	e := &BatchExecutor{}
	e.BaseExecutor = newBaseExecutor(driver, tx, cfg, e)
	e.projector = NewProjector(cfg, e)
	return e
}

func (e *BatchExecutor) doQuery(ctx context.Context, ms *mapping.MappedStatement, parameter any, bound boundStatement, handler ResultHandler) ([]any, error) {
	if err := e.doFlushStatements(ctx); err != nil {
		return nil, err
	}
	rows, err := e.Driver.Query(ctx, bound.sql, bound.args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resultMap := primaryResultMap(ms)
	if resultMap == nil {
		return scanUnmapped(rows, handler)
	}
	return e.projector.Project(projectContext{ctx: ctx}, rows, resultMap, handler)
}

func (e *BatchExecutor) doUpdate(ctx context.Context, ms *mapping.MappedStatement, parameter any, bound boundStatement) (int64, error) {
	var last *batchGroup
	if n := len(e.groups); n > 0 {
		last = e.groups[n-1]
	}
	if last == nil || last.ms != ms || last.sql != bound.sql {
		last = &batchGroup{ms: ms, sql: bound.sql}
		e.groups = append(e.groups, last)
	}
	last.argSets = append(last.argSets, bound.args)
	last.parameters = append(last.parameters, parameter)
	// Batch semantics (JDBC addBatch) defer the affected-row count until
	// flush; -2 reports that synchronously, mirroring
	// Statement.SUCCESS_NO_INFO, which callers must not treat as an error.
	return -2, nil
}

func (e *BatchExecutor) doFlushStatements(ctx context.Context) error {
	groups := e.groups
	e.groups = nil
	for _, g := range groups {
		results, err := e.Driver.ExecBatch(ctx, g.sql, g.argSets)
		if err != nil {
			return err
		}
		gen := keyGeneratorFor(g.ms)
		for i, res := range results {
			if i >= len(g.parameters) {
				break
			}
			if err := gen.ProcessAfter(ctx, e, e.Driver, g.ms, g.parameters[i], res); err != nil {
				return err
			}
		}
	}
	return nil
}
