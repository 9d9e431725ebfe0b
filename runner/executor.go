package runner

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs rendered SQL. It is the only part of the stack that does
// I/O; errors it returns reach the caller unmodified.
type Executor interface {
	QueryRows(ctx context.Context, sql string, args []any) (Rows, error)
	ExecMutation(ctx context.Context, sql string, args []any) (int64, error)
}

// Rows is a forward-only cursor over raw result rows.
type Rows interface {
	Next() bool
	// Values returns the current row as backend-native values.
	Values() ([]any, error)
	Err() error
	Close() error
}

// Querier is the database/sql surface FromSQL needs.
// *sql.DB, *sql.Tx and *sql.Conn implement it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
	_ Querier = (*sql.Conn)(nil)
)

// FromSQL adapts a database/sql handle.
func FromSQL(q Querier) Executor {
	return sqlExecutor{q: q}
}

type sqlExecutor struct {
	q Querier
}

func (e sqlExecutor) QueryRows(ctx context.Context, query string, args []any) (Rows, error) {
	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (e sqlExecutor) ExecMutation(ctx context.Context, query string, args []any) (int64, error) {
	res, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sqlRows struct {
	rows  *sql.Rows
	width int
}

func (r *sqlRows) Next() bool { return r.rows.Next() }

func (r *sqlRows) Values() ([]any, error) {
	if r.width == 0 {
		cols, err := r.rows.Columns()
		if err != nil {
			return nil, err
		}
		r.width = len(cols)
	}
	values := make([]any, r.width)
	ptrs := make([]any, r.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *sqlRows) Err() error   { return r.rows.Err() }
func (r *sqlRows) Close() error { return r.rows.Close() }

// PgxQuerier is the pgx surface FromPgx needs.
// *pgx.Conn, pgx.Tx and *pgxpool.Pool implement it.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var (
	_ PgxQuerier = (*pgx.Conn)(nil)
	_ PgxQuerier = (pgx.Tx)(nil)
	_ PgxQuerier = (*pgxpool.Pool)(nil)
)

// FromPgx adapts a native pgx connection, transaction or pool.
func FromPgx(q PgxQuerier) Executor {
	return pgxExecutor{q: q}
}

type pgxExecutor struct {
	q PgxQuerier
}

func (e pgxExecutor) QueryRows(ctx context.Context, query string, args []any) (Rows, error) {
	rows, err := e.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRows{rows: rows}, nil
}

func (e pgxExecutor) ExecMutation(ctx context.Context, query string, args []any) (int64, error) {
	tag, err := e.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgxRows struct {
	rows pgx.Rows
}

func (r pgxRows) Next() bool             { return r.rows.Next() }
func (r pgxRows) Values() ([]any, error) { return r.rows.Values() }
func (r pgxRows) Err() error             { return r.rows.Err() }

func (r pgxRows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}
