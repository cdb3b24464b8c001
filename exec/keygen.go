package exec

import (
	"context"
	"strings"

	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/mapping"
	"github.com/wolfleong/gobatis/reflectx"
)

// KeyGenerator produces or harvests generated primary keys around an
// insert/update statement. Three named strategies implement it:
// NoKeyGenerator (no-op), SelectKeyGenerator (runs a synthetic select
// before/after the parent statement), and Jdbc3KeyGenerator (reads back
// the driver's generated-keys result set after the insert).
type KeyGenerator interface {
	ProcessBefore(ctx context.Context, exec Executor, ms *mapping.MappedStatement, parameter any) error
	ProcessAfter(ctx context.Context, exec Executor, driver driverx.Driver, ms *mapping.MappedStatement, parameter any, result driverx.Result) error
}

type NoKeyGenerator struct{}

func (NoKeyGenerator) ProcessBefore(context.Context, Executor, *mapping.MappedStatement, any) error {
	return nil
}

func (NoKeyGenerator) ProcessAfter(context.Context, Executor, driverx.Driver, *mapping.MappedStatement, any, driverx.Result) error {
	return nil
}

// Jdbc3KeyGenerator re-queries the driver for the generated-keys result
// set produced by the preceding Exec, assigning each returned column to
// the corresponding KeyProperty in declaration order. When the driver
// can't surface a result set (StdDriver over database/sql, notably) it
// falls back to Result.LastInsertId() for the first key property - the
// shape a single MySQL-style auto-increment column needs.
type Jdbc3KeyGenerator struct{}

func (Jdbc3KeyGenerator) ProcessBefore(context.Context, Executor, *mapping.MappedStatement, any) error {
	return nil
}

func (Jdbc3KeyGenerator) ProcessAfter(ctx context.Context, _ Executor, driver driverx.Driver, ms *mapping.MappedStatement, parameter any, result driverx.Result) error {
	if len(ms.KeyProperties) == 0 {
		return nil
	}
	if rows, err := driver.GeneratedKeys(ctx, result); err == nil && rows != nil {
		defer rows.Close()
		if rows.Next() {
			vals := make([]any, len(ms.KeyProperties))
			ptrs := make([]any, len(vals))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if scanErr := rows.Scan(ptrs...); scanErr == nil {
				return assignKeyValues(parameter, ms.KeyProperties, vals)
			}
		}
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil
	}
	return assignKeyValues(parameter, ms.KeyProperties[:1], []any{id})
}

// SelectKeyGenerator runs the synthetic "<id>!selectKey" statement either
// before or after the parent statement and copies its single result
// row's columns onto the parent parameter's key properties.
type SelectKeyGenerator struct{}

func (SelectKeyGenerator) ProcessBefore(ctx context.Context, exec Executor, ms *mapping.MappedStatement, parameter any) error {
	if ms.SelectKey == nil || !ms.SelectKey.ExecuteBefore {
		return nil
	}
	return runSelectKey(ctx, exec, ms.SelectKey, parameter)
}

func (SelectKeyGenerator) ProcessAfter(ctx context.Context, exec Executor, _ driverx.Driver, ms *mapping.MappedStatement, parameter any, _ driverx.Result) error {
	if ms.SelectKey == nil || ms.SelectKey.ExecuteBefore {
		return nil
	}
	return runSelectKey(ctx, exec, ms.SelectKey, parameter)
}

func runSelectKey(ctx context.Context, exec Executor, sk *mapping.SelectKeyStatement, parameter any) error {
	rows, err := exec.Query(ctx, sk.Statement, parameter, nil)
	if err != nil || len(rows) == 0 {
		return err
	}
	row, ok := rows[0].(map[string]any)
	if !ok {
		if len(sk.KeyProperties) > 0 {
			return assignKeyValues(parameter, sk.KeyProperties[:1], []any{rows[0]})
		}
		return nil
	}
	vals := make([]any, len(sk.KeyColumns))
	for i, col := range sk.KeyColumns {
		vals[i] = row[strings.ToUpper(col)]
	}
	return assignKeyValues(parameter, sk.KeyProperties, vals)
}

func assignKeyValues(parameter any, properties []string, values []any) error {
	for i, prop := range properties {
		if i >= len(values) {
			break
		}
		if err := reflectx.WriteValue(parameter, prop, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// keyGeneratorFor resolves the concrete strategy for ms.KeyGenerator.
func keyGeneratorFor(ms *mapping.MappedStatement) KeyGenerator {
	switch ms.KeyGenerator {
	case mapping.KeyGeneratorJdbc3:
		return Jdbc3KeyGenerator{}
	case mapping.KeyGeneratorSelectKey:
		return SelectKeyGenerator{}
	default:
		return NoKeyGenerator{}
	}
}
