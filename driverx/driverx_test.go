package driverx

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdDriverQueryScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select id, name from person where id = ?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "ada"))

	d := NewStdDriver(db)
	rows, err := d.Query(context.Background(), "select id, name from person where id = ?", []any{1})
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var id int64
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "ada", name)
	assert.False(t, rows.Next())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStdDriverExecReportsResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("insert into person").
		WithArgs("grace").
		WillReturnResult(sqlmock.NewResult(7, 1))

	d := NewStdDriver(db)
	res, err := d.Exec(context.Background(), "insert into person (name) values (?)", []any{"grace"})
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStdDriverExecBatchRunsEachArgSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("insert into person").WithArgs("ada").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into person").WithArgs("grace").WillReturnResult(sqlmock.NewResult(2, 1))

	d := NewStdDriver(db)
	results, err := d.ExecBatch(context.Background(), "insert into person (name) values (?)", [][]any{
		{"ada"}, {"grace"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	id0, _ := results[0].LastInsertId()
	id1, _ := results[1].LastInsertId()
	assert.Equal(t, int64(1), id0)
	assert.Equal(t, int64(2), id1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStdDriverGeneratedKeysIsUnsupported(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := NewStdDriver(db)
	rows, err := d.GeneratedKeys(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, rows, "database/sql has no portable generated-keys result set")
}

func TestStdDriverUsesTransactionWhenSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("update person set name").WithArgs("ada", 1).WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	d := &StdDriver{DB: db, Tx: tx}
	_, err = d.Exec(context.Background(), "update person set name = ? where id = ?", []any{"ada", 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStdDriverSetTimeoutAppliesDeadline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select 1").WillReturnRows(sqlmock.NewRows([]string{"x"}).AddRow(1))

	d := NewStdDriver(db)
	d.SetTimeout(time.Minute)
	rows, err := d.Query(context.Background(), "select 1", nil)
	require.NoError(t, err)
	defer rows.Close()
	assert.True(t, rows.Next())
}
