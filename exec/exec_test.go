package exec

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfleong/gobatis/driverx"
	"github.com/wolfleong/gobatis/dynamicsql"
	"github.com/wolfleong/gobatis/mapping"
	"github.com/wolfleong/gobatis/proxyx"
)

type fakeResult struct {
	lastID int64
	rows   int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

type fakeRows struct {
	cols []string
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool { r.i++; return r.i <= len(r.data) }
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	for i, d := range dest {
		rv := reflect.ValueOf(d).Elem()
		rv.Set(reflect.ValueOf(row[i]))
	}
	return nil
}
func (r *fakeRows) Columns() ([]string, error)                  { return r.cols, nil }
func (r *fakeRows) ColumnTypes() ([]*sql.ColumnType, error)      { return nil, nil }
func (r *fakeRows) NextResultSet() bool                         { return false }
func (r *fakeRows) Err() error                                  { return nil }
func (r *fakeRows) Close() error                                { return nil }

type fakeDriver struct {
	queryRows      *fakeRows
	queryRowsBySQL map[string]*fakeRows // overrides queryRows when the statement's SQL text matches, for tests running more than one distinct select
	execResult     fakeResult
	queries        []string
	queryCtxs      []context.Context // ctx received by each Query call, in order, so tests can assert a real (non-nil) context reached the driver
	execs          []string
}

func (d *fakeDriver) Query(ctx context.Context, sqlText string, args []any) (driverx.Rows, error) {
	d.queries = append(d.queries, sqlText)
	d.queryCtxs = append(d.queryCtxs, ctx)
	if rows, ok := d.queryRowsBySQL[sqlText]; ok {
		return rows, nil
	}
	return d.queryRows, nil
}
func (d *fakeDriver) Exec(ctx context.Context, sqlText string, args []any) (driverx.Result, error) {
	d.execs = append(d.execs, sqlText)
	return d.execResult, nil
}
func (d *fakeDriver) ExecBatch(ctx context.Context, sqlText string, argSets [][]any) ([]driverx.Result, error) {
	d.execs = append(d.execs, sqlText) // one entry per ExecBatch call, not per argument tuple
	out := make([]driverx.Result, len(argSets))
	for i := range argSets {
		out[i] = d.execResult
	}
	return out, nil
}
func (d *fakeDriver) GeneratedKeys(ctx context.Context, res driverx.Result) (driverx.Rows, error) {
	return nil, nil
}
func (d *fakeDriver) SetTimeout(_ time.Duration) {}

type fakeTx struct{ closed, committed, rolledBack bool }

func (t *fakeTx) Commit() error             { t.committed = true; return nil }
func (t *fakeTx) Rollback() error           { t.rolledBack = true; return nil }
func (t *fakeTx) Close() error              { t.closed = true; return nil }
func (t *fakeTx) Timeout() time.Duration    { return 0 }

type person struct {
	ID   int64
	Name string
}

func selectStatement(id string, rm *mapping.ResultMap) *mapping.MappedStatement {
	return &mapping.MappedStatement{
		ID:        id,
		Command:   mapping.CommandSelect,
		SqlSource: &dynamicsql.StaticSqlSource{SQL: "select id, name from person where id = ?", Mappings: []dynamicsql.ParameterMapping{{Property: "ID"}}},
		ResultMaps: []*mapping.ResultMap{rm},
	}
}

func personResultMap() *mapping.ResultMap {
	rm := &mapping.ResultMap{
		ID:   "person",
		Type: reflect.TypeOf(person{}),
		Mappings: []mapping.ResultMapping{
			{Property: "ID", Column: "ID", Flags: mapping.FlagID},
			{Property: "Name", Column: "NAME"},
		},
	}
	rm.RebuildMappedColumns()
	return rm
}

func TestSimpleExecutorQueryProjectsRows(t *testing.T) {
	cfg := mapping.NewConfiguration()
	rm := personResultMap()
	cfg.AddResultMap(rm)
	ms := selectStatement("ns.getPerson", rm)
	cfg.AddStatement(ms)

	driver := &fakeDriver{queryRows: &fakeRows{cols: []string{"ID", "NAME"}, data: [][]any{{int64(1), "Ada"}}}}
	tx := &fakeTx{}
	exec := NewSimpleExecutor(driver, tx, cfg)

	rows, err := exec.Query(context.Background(), ms, &person{ID: 1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	p := rows[0].(*person)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Ada", p.Name)
}

func TestSimpleExecutorFirstLevelCacheHitsWithoutSecondQuery(t *testing.T) {
	cfg := mapping.NewConfiguration()
	rm := personResultMap()
	cfg.AddResultMap(rm)
	ms := selectStatement("ns.getPerson", rm)
	cfg.AddStatement(ms)

	driver := &fakeDriver{queryRows: &fakeRows{cols: []string{"ID", "NAME"}, data: [][]any{{int64(1), "Ada"}}}}
	tx := &fakeTx{}
	exec := NewSimpleExecutor(driver, tx, cfg)

	_, err := exec.Query(context.Background(), ms, &person{ID: 1}, nil)
	require.NoError(t, err)
	_, err = exec.Query(context.Background(), ms, &person{ID: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, driver.queries, 1, "second identical query should be served from the first-level cache")
}

func TestSimpleExecutorUpdateClearsLocalCache(t *testing.T) {
	cfg := mapping.NewConfiguration()
	rm := personResultMap()
	cfg.AddResultMap(rm)
	ms := selectStatement("ns.getPerson", rm)
	cfg.AddStatement(ms)
	update := &mapping.MappedStatement{
		ID:        "ns.updatePerson",
		Command:   mapping.CommandUpdate,
		SqlSource: &dynamicsql.StaticSqlSource{SQL: "update person set name = ? where id = ?"},
	}

	driver := &fakeDriver{queryRows: &fakeRows{cols: []string{"ID", "NAME"}, data: [][]any{{int64(1), "Ada"}}}, execResult: fakeResult{rows: 1}}
	tx := &fakeTx{}
	exec := NewSimpleExecutor(driver, tx, cfg)

	_, err := exec.Query(context.Background(), ms, &person{ID: 1}, nil)
	require.NoError(t, err)
	_, err = exec.Update(context.Background(), update, &person{ID: 1, Name: "Grace"})
	require.NoError(t, err)

	driver.queryRows = &fakeRows{cols: []string{"ID", "NAME"}, data: [][]any{{int64(1), "Ada"}}}
	_, err = exec.Query(context.Background(), ms, &person{ID: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, driver.queries, 2, "a write must invalidate the local cache")
}

type order struct {
	ID    int64
	Owner any // nested-select results come back as []any; typed here as any to sidestep the slice-to-struct coercion the projector doesn't handle for this shape
}

func TestSimpleExecutorEagerNestedSelectThreadsRealContext(t *testing.T) {
	cfg := mapping.NewConfiguration()
	personRM := personResultMap()
	cfg.AddResultMap(personRM)
	personStmt := selectStatement("ns.getPerson", personRM)
	cfg.AddStatement(personStmt)

	orderRM := &mapping.ResultMap{
		ID:   "order",
		Type: reflect.TypeOf(order{}),
		Mappings: []mapping.ResultMapping{
			{Property: "ID", Column: "ID", Flags: mapping.FlagID},
			{Property: "Owner", Column: "OWNERID", NestedSelectID: "ns.getPerson"},
		},
	}
	orderRM.RebuildMappedColumns()
	cfg.AddResultMap(orderRM)
	orderStmt := &mapping.MappedStatement{
		ID:         "ns.getOrder",
		Command:    mapping.CommandSelect,
		SqlSource:  &dynamicsql.StaticSqlSource{SQL: "select id, ownerid from orders where id = ?"},
		ResultMaps: []*mapping.ResultMap{orderRM},
	}
	cfg.AddStatement(orderStmt)

	driver := &fakeDriver{
		queryRowsBySQL: map[string]*fakeRows{
			orderStmt.SqlSource.(*dynamicsql.StaticSqlSource).SQL:  {cols: []string{"ID", "OWNERID"}, data: [][]any{{int64(1), int64(7)}}},
			personStmt.SqlSource.(*dynamicsql.StaticSqlSource).SQL: {cols: []string{"ID", "NAME"}, data: [][]any{{int64(7), "Ada"}}},
		},
	}
	tx := &fakeTx{}
	exec := NewSimpleExecutor(driver, tx, cfg)

	rows, err := exec.Query(context.Background(), orderStmt, &order{ID: 1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	o := rows[0].(*order)
	require.NotNil(t, o.Owner)
	owners, ok := o.Owner.([]any)
	require.True(t, ok)
	require.Len(t, owners, 1)
	assert.Equal(t, "Ada", owners[0].(*person).Name)

	require.Len(t, driver.queryCtxs, 2, "the outer select and the eager nested select must both reach the driver")
	for i, ctx := range driver.queryCtxs {
		require.NotNilf(t, ctx, "query %d must receive a real context, not a nil interface", i)
	}
}

func TestSimpleExecutorLazyNestedSelectThreadsRealContextOnDemand(t *testing.T) {
	cfg := mapping.NewConfiguration()
	personRM := personResultMap()
	cfg.AddResultMap(personRM)
	personStmt := selectStatement("ns.getPerson", personRM)
	cfg.AddStatement(personStmt)

	orderRM := &mapping.ResultMap{
		ID:   "order",
		Type: reflect.TypeOf(order{}),
		Mappings: []mapping.ResultMapping{
			{Property: "ID", Column: "ID", Flags: mapping.FlagID},
			{Property: "Owner", Column: "OWNERID", NestedSelectID: "ns.getPerson", Lazy: true},
		},
	}
	orderRM.RebuildMappedColumns()
	cfg.AddResultMap(orderRM)
	orderStmt := &mapping.MappedStatement{
		ID:         "ns.getOrder",
		Command:    mapping.CommandSelect,
		SqlSource:  &dynamicsql.StaticSqlSource{SQL: "select id, ownerid from orders where id = ?"},
		ResultMaps: []*mapping.ResultMap{orderRM},
	}
	cfg.AddStatement(orderStmt)

	driver := &fakeDriver{
		queryRowsBySQL: map[string]*fakeRows{
			orderStmt.SqlSource.(*dynamicsql.StaticSqlSource).SQL:  {cols: []string{"ID", "OWNERID"}, data: [][]any{{int64(1), int64(7)}}},
			personStmt.SqlSource.(*dynamicsql.StaticSqlSource).SQL: {cols: []string{"ID", "NAME"}, data: [][]any{{int64(7), "Ada"}}},
		},
	}
	tx := &fakeTx{}
	exec := NewSimpleExecutor(driver, tx, cfg)

	rows, err := exec.Query(context.Background(), orderStmt, &order{ID: 1}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	lazy, ok := rows[0].(*proxyx.LazyObject)
	require.True(t, ok, "a lazy nested select must come back wrapped in a LazyObject")
	require.Len(t, driver.queryCtxs, 1, "the lazy load must not run until explicitly triggered")

	owner, err := lazy.Load("Owner")
	require.NoError(t, err)
	owners, ok := owner.([]any)
	require.True(t, ok)
	require.Len(t, owners, 1)
	assert.Equal(t, &person{ID: 7, Name: "Ada"}, owners[0])

	require.Len(t, driver.queryCtxs, 2)
	for i, ctx := range driver.queryCtxs {
		require.NotNilf(t, ctx, "query %d must receive a real context, not a nil interface", i)
	}
}

func TestJdbc3KeyGeneratorFallsBackToLastInsertId(t *testing.T) {
	cfg := mapping.NewConfiguration()
	insert := &mapping.MappedStatement{
		ID:            "ns.insertPerson",
		Command:       mapping.CommandInsert,
		SqlSource:     &dynamicsql.StaticSqlSource{SQL: "insert into person (name) values (?)"},
		KeyGenerator:  mapping.KeyGeneratorJdbc3,
		KeyProperties: []string{"ID"},
	}
	driver := &fakeDriver{execResult: fakeResult{lastID: 42, rows: 1}}
	tx := &fakeTx{}
	exec := NewSimpleExecutor(driver, tx, cfg)

	p := &person{Name: "Ada"}
	_, err := exec.Update(context.Background(), insert, p)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
}

func TestBatchExecutorGroupsByStatementAndFlushesOnQuery(t *testing.T) {
	cfg := mapping.NewConfiguration()
	insert := &mapping.MappedStatement{
		ID:        "ns.insertPerson",
		Command:   mapping.CommandInsert,
		SqlSource: &dynamicsql.StaticSqlSource{SQL: "insert into person (name) values (?)"},
	}
	rm := personResultMap()
	cfg.AddResultMap(rm)
	sel := selectStatement("ns.getPerson", rm)

	driver := &fakeDriver{execResult: fakeResult{rows: 1}, queryRows: &fakeRows{cols: []string{"ID", "NAME"}, data: [][]any{{int64(1), "Ada"}}}}
	tx := &fakeTx{}
	exec := NewBatchExecutor(driver, tx, cfg)

	_, err := exec.Update(context.Background(), insert, &person{Name: "Ada"})
	require.NoError(t, err)
	_, err = exec.Update(context.Background(), insert, &person{Name: "Grace"})
	require.NoError(t, err)
	assert.Empty(t, driver.execs, "batched updates must not hit the driver until flush")

	_, err = exec.Query(context.Background(), sel, &person{ID: 1}, nil)
	require.NoError(t, err)
	assert.Len(t, driver.execs, 1, "a query forces the pending batch to flush as one ExecBatch call")
}

func TestSessionCommitCommitsTransaction(t *testing.T) {
	cfg := mapping.NewConfiguration()
	rm := personResultMap()
	cfg.AddResultMap(rm)

	driver := &fakeDriver{execResult: fakeResult{rows: 1}}
	tx := &fakeTx{}
	session := NewSession(driver, tx, cfg, ExecutorSimple, false)

	update := &mapping.MappedStatement{
		ID:        "ns.updatePerson",
		Command:   mapping.CommandUpdate,
		SqlSource: &dynamicsql.StaticSqlSource{SQL: "update person set name = ? where id = ?"},
	}
	cfg.AddStatement(update)

	_, err := session.Update(context.Background(), "ns.updatePerson", &person{ID: 1, Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, session.Commit(context.Background()))
	assert.True(t, tx.committed)
}

func TestSessionCloseRollsBackDirtyNonAutocommitSession(t *testing.T) {
	cfg := mapping.NewConfiguration()
	update := &mapping.MappedStatement{
		ID:        "ns.updatePerson",
		Command:   mapping.CommandUpdate,
		SqlSource: &dynamicsql.StaticSqlSource{SQL: "update person set name = ? where id = ?"},
	}
	cfg.AddStatement(update)

	driver := &fakeDriver{execResult: fakeResult{rows: 1}}
	tx := &fakeTx{}
	session := NewSession(driver, tx, cfg, ExecutorSimple, false)

	_, err := session.Update(context.Background(), "ns.updatePerson", &person{ID: 1, Name: "Ada"})
	require.NoError(t, err)
	require.NoError(t, session.Close(context.Background()))
	assert.True(t, tx.rolledBack, "closing a dirty non-autocommit session must roll back")
	assert.True(t, tx.closed)
}
