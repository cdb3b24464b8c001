// Package driverx names the external collaborators the execution core
// consumes: the JDBC-style Driver, the Transaction abstraction
// and the TypeConverter contract. The core only depends on these
// interfaces; concrete bindings are supplied by callers (database/sql
// plus a real driver such as go-sql-driver/mysql, lib/pq or
// mattn/go-sqlite3).
package driverx

import (
	"context"
	"database/sql"
	"reflect"
	"time"
)

// Driver is the prepare/execute/iterate/generated-keys/batch contract
//. StdDriver below adapts it onto database/sql.
type Driver interface {
	// Query runs sql with args and returns a Rows cursor the caller must
	// close.
	Query(ctx context.Context, sqlText string, args []any) (Rows, error)
	// Exec runs a write statement and returns the driver's report of rows
	// affected and (if the driver surfaces them inline) generated keys.
	Exec(ctx context.Context, sqlText string, args []any) (Result, error)
	// ExecBatch runs the same statement against the driver's batch API for
	// distinct argument tuples, used by the Batch executor.
	ExecBatch(ctx context.Context, sqlText string, argSets [][]any) ([]Result, error)
	// GeneratedKeys re-queries the driver for the generated-keys result set
	// produced by the last Exec call, for drivers that support it.
	GeneratedKeys(ctx context.Context, res Result) (Rows, error)
	// SetTimeout applies the configured per-statement timeout.
	SetTimeout(d time.Duration)
}

// Rows is the minimal result-set cursor contract the projection code in
// exec needs: column metadata plus row iteration, modeled directly on
// database/sql.Rows so StdDriver can return it unwrapped.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
	NextResultSet() bool
	Err() error
	Close() error
}

// Result mirrors database/sql.Result.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Transaction is the get-connection/commit/rollback/close contract.
type Transaction interface {
	Commit() error
	Rollback() error
	Close() error
	Timeout() time.Duration
}

// TypeConverter is the JDBC<->Go value contract:
// read by column index/name, write to a parameter slot, with an "unknown"
// fallback dispatching by runtime type.
type TypeConverter interface {
	ReadByIndex(rows Rows, index int) (any, error)
	ReadByName(rows Rows, name string) (any, error)
	WriteParameter(goType reflect.Type, value any) (any, error)
}

// StdDriver adapts a *sql.DB/*sql.Tx pair onto the Driver interface using
// only database/sql, so StdDriver itself can front go-sql-driver/mysql,
// lib/pq or mattn/go-sqlite3 without change.
type StdDriver struct {
	DB      *sql.DB
	Tx      *sql.Tx
	timeout time.Duration
}

func NewStdDriver(db *sql.DB) *StdDriver { return &StdDriver{DB: db} }

func (d *StdDriver) SetTimeout(t time.Duration) { d.timeout = t }

func (d *StdDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *StdDriver) querier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
} {
	if d.Tx != nil {
		return d.Tx
	}
	return d.DB
}

func (d *StdDriver) execer() interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if d.Tx != nil {
		return d.Tx
	}
	return d.DB
}

func (d *StdDriver) Query(ctx context.Context, sqlText string, args []any) (Rows, error) {
	ctx, cancel := d.withTimeout(ctx)
	rows, err := d.querier().QueryContext(ctx, sqlText, args...)
	if err != nil {
		cancel()
		return nil, err
	}
	return &stdRows{Rows: rows, cancel: cancel}, nil
}

func (d *StdDriver) Exec(ctx context.Context, sqlText string, args []any) (Result, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.execer().ExecContext(ctx, sqlText, args...)
}

func (d *StdDriver) ExecBatch(ctx context.Context, sqlText string, argSets [][]any) ([]Result, error) {
	results := make([]Result, 0, len(argSets))
	for _, args := range argSets {
		res, err := d.Exec(ctx, sqlText, args)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *StdDriver) GeneratedKeys(ctx context.Context, res Result) (Rows, error) {
	// database/sql has no portable generated-keys result set; drivers that
	// need it (MySQL) rely on LastInsertId instead, handled in
	// exec/keygen.go's Jdbc3KeyGenerator.
	return nil, nil
}

// stdRows adapts *sql.Rows to the Rows interface; Close also releases the
// query's timeout context.
type stdRows struct {
	*sql.Rows
	cancel context.CancelFunc
}

func (r *stdRows) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}

func (r *stdRows) NextResultSet() bool { return r.Rows.NextResultSet() }
