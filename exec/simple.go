package exec

import (
	"context"

	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/mapping"
)

// SimpleExecutor is the plainest doer: every call issues its own
// prepared statement against the driver and tears it down on
// completion.
type SimpleExecutor struct {
	*BaseExecutor
	projector *Projector
}

// NewSimpleExecutor builds a SimpleExecutor over driver/tx, registering
// itself as the BaseExecutor's doer so Query/Update dispatch here.
func NewSimpleExecutor(driver driverx.Driver, tx driverx.Transaction, cfg *mapping.Configuration) *SimpleExecutor {
	e := &SimpleExecutor{}
	e.BaseExecutor = newBaseExecutor(driver, tx, cfg, e)
	e.projector = NewProjector(cfg, e)
	return e
}

func (e *SimpleExecutor) doQuery(ctx context.Context, ms *mapping.MappedStatement, parameter any, bound boundStatement, handler ResultHandler) ([]any, error) {
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

func (e *SimpleExecutor) doUpdate(ctx context.Context, ms *mapping.MappedStatement, parameter any, bound boundStatement) (int64, error) {
	gen := keyGeneratorFor(ms)
	if err := gen.ProcessBefore(ctx, e, ms, parameter); err != nil {
		return 0, err
	}
	res, err := e.Driver.Exec(ctx, bound.sql, bound.args)
	if err != nil {
		return 0, err
	}
	if err := gen.ProcessAfter(ctx, e, e.Driver, ms, parameter, res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (e *SimpleExecutor) doFlushStatements(ctx context.Context) error {
	return nil
}

// primaryResultMap returns the ResultMap a statement's default (first)
// result set projects into, or nil for statements with no declared
// result maps (callers fall back to positional scanning).
func primaryResultMap(ms *mapping.MappedStatement) *mapping.ResultMap {
	if len(ms.ResultMaps) == 0 {
		return nil
	}
	return ms.ResultMaps[0]
}

// scanUnmapped handles statements with no declared ResultMap: each row
// becomes a map[string]any keyed by column name, the same shape ad-hoc
// SQL tools fall back to.
func scanUnmapped(rows driverx.Rows, handler ResultHandler) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return out, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = raw[i]
		}
		if handler != nil {
			handler(row)
		} else {
			out = append(out, row)
		}
	}
	return out, rows.Err()
}
