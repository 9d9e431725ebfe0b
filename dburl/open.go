package dburl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/shipq/typedsql/query/compile"
)

// Open connects to dbURL through database/sql and verifies the connection.
func Open(ctx context.Context, dbURL string) (*sql.DB, compile.Dialect, error) {
	t, err := Parse(dbURL)
	if err != nil {
		return nil, nil, err
	}
	dialect, err := t.SQLDialect()
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(t.Driver, t.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if t.Dialect == DialectSQLite && isMemory(t.DSN) {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, dialect, nil
}

// OpenPool connects to a postgres URL with a native pgx pool.
func OpenPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	t, err := Parse(dbURL)
	if err != nil {
		return nil, err
	}
	if t.Dialect != DialectPostgres {
		return nil, fmt.Errorf("%w: pgx pools need a postgres URL, got %s", ErrUnknownDialect, t.Dialect)
	}
	pool, err := pgxpool.New(ctx, t.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || dsn == "" || len(dsn) >= 8 && dsn[:8] == ":memory:"
}
