package compile

import (
	"fmt"
	"strings"

	"github.com/shipq/typedsql/query"
)

// Dialect defines the SQL dialect-specific behavior for compilation.
// The compiler's traversal is written against this interface only; a new
// backend is added by implementing it.
type Dialect interface {
	// Name returns the dialect name for debugging/logging.
	Name() string

	// QuoteIdentifier quotes an identifier (table name, column name, alias).
	QuoteIdentifier(name string) string

	// Placeholder returns the parameter placeholder for the given index (1-based).
	// Postgres uses $1, $2, etc. MySQL and SQLite use ?.
	Placeholder(index int) string

	// NowFunc returns the SQL function for current timestamp.
	NowFunc() string

	// FuncName maps a function name to the dialect's spelling.
	FuncName(name string) string

	// ConcatOperator returns the infix string concatenation operator, or ""
	// when the dialect concatenates with a CONCAT(...) call.
	ConcatOperator() string

	// WriteILIKE writes a case-insensitive LIKE expression.
	// The writeExpr callback writes an operand with comparison-level
	// parenthesization.
	WriteILIKE(b *strings.Builder, left, right query.Expr, negated bool, writeExpr func(query.Expr) error) error

	// WriteLimitOffset writes the LIMIT/OFFSET clause, including its leading
	// space. Either argument may be nil; both are non-negative.
	WriteLimitOffset(b *strings.Builder, limit, offset *int64)

	// SupportsNullsOrdering reports whether ORDER BY accepts NULLS FIRST/LAST.
	SupportsNullsOrdering() bool

	// SupportsJoin reports whether the join kind is available.
	SupportsJoin(kind query.JoinKind) bool

	// SupportsReturning reports whether INSERT/UPDATE/DELETE accept RETURNING.
	SupportsReturning() bool

	// WrapSetOpQueries reports whether set operation members are wrapped in
	// parentheses. Dialects that cannot wrap reject members carrying ORDER
	// BY, LIMIT or OFFSET.
	WrapSetOpQueries() bool

	// RowValues reports which row-value (composite) forms the dialect
	// evaluates natively. Unsupported forms are expanded column by column.
	RowValues() RowValueSupport
}

// RowValueSupport describes native row-value handling.
//
// When a form is not native the compiler expands it:
//
//	(a, b) = (x, y)       ->  a = x AND b = y
//	(a, b) <> (x, y)      ->  a <> x OR b <> y
//	(a, b) IN ((x, y))    ->  (a = x AND b = y) OR ...
//	(a, b) IS NULL        ->  a IS NULL AND b IS NULL
//	(a, b) IS NOT NULL    ->  a IS NOT NULL AND b IS NOT NULL
//
// The expansions keep SQL three-valued semantics for equality; NULL tests
// follow the standard definition (all columns NULL / none NULL).
type RowValueSupport struct {
	Compare  bool
	In       bool
	NullTest bool
}

// =============================================================================
// Shared Helpers
// =============================================================================

// writeILIKEWithLower emulates ILIKE using LOWER(x) LIKE LOWER(y).
func writeILIKEWithLower(b *strings.Builder, left, right query.Expr, negated bool, writeExpr func(query.Expr) error) error {
	b.WriteString("LOWER(")
	if err := writeExpr(left); err != nil {
		return err
	}
	if negated {
		b.WriteString(") NOT LIKE LOWER(")
	} else {
		b.WriteString(") LIKE LOWER(")
	}
	if err := writeExpr(right); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

// writeStandardLimitOffset writes LIMIT n and OFFSET m independently.
func writeStandardLimitOffset(b *strings.Builder, limit, offset *int64) {
	if limit != nil {
		fmt.Fprintf(b, " LIMIT %d", *limit)
	}
	if offset != nil {
		fmt.Fprintf(b, " OFFSET %d", *offset)
	}
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func mapFunc(names map[string]string, name string) string {
	if mapped, ok := names[strings.ToUpper(name)]; ok {
		return mapped
	}
	return name
}

// =============================================================================
// Postgres Dialect
// =============================================================================

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

var postgresFuncs = map[string]string{
	"RAND":   "RANDOM",
	"IFNULL": "COALESCE",
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) QuoteIdentifier(name string) string { return doubleQuote(name) }

func (d *PostgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }

func (d *PostgresDialect) NowFunc() string { return "NOW()" }

func (d *PostgresDialect) FuncName(name string) string { return mapFunc(postgresFuncs, name) }

func (d *PostgresDialect) ConcatOperator() string { return "||" }

func (d *PostgresDialect) WriteILIKE(b *strings.Builder, left, right query.Expr, negated bool, writeExpr func(query.Expr) error) error {
	// Postgres has native ILIKE
	if err := writeExpr(left); err != nil {
		return err
	}
	if negated {
		b.WriteString(" NOT ILIKE ")
	} else {
		b.WriteString(" ILIKE ")
	}
	return writeExpr(right)
}

func (d *PostgresDialect) WriteLimitOffset(b *strings.Builder, limit, offset *int64) {
	writeStandardLimitOffset(b, limit, offset)
}

func (d *PostgresDialect) SupportsNullsOrdering() bool { return true }

func (d *PostgresDialect) SupportsJoin(query.JoinKind) bool { return true }

func (d *PostgresDialect) SupportsReturning() bool { return true }

func (d *PostgresDialect) WrapSetOpQueries() bool { return true }

func (d *PostgresDialect) RowValues() RowValueSupport {
	return RowValueSupport{Compare: true, In: true, NullTest: true}
}

// =============================================================================
// MySQL Dialect
// =============================================================================

// MySQLDialect implements Dialect for MySQL 8.
type MySQLDialect struct{}

var mysqlFuncs = map[string]string{
	"RANDOM": "RAND",
}

// mysqlMaxLimit is the documented way to express OFFSET without LIMIT.
const mysqlMaxLimit = "18446744073709551615"

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	// Escape embedded backticks by doubling them
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MySQLDialect) Placeholder(int) string { return "?" }

func (d *MySQLDialect) NowFunc() string { return "NOW()" }

func (d *MySQLDialect) FuncName(name string) string { return mapFunc(mysqlFuncs, name) }

// ConcatOperator is empty: || is logical OR unless PIPES_AS_CONCAT is set.
func (d *MySQLDialect) ConcatOperator() string { return "" }

func (d *MySQLDialect) WriteILIKE(b *strings.Builder, left, right query.Expr, negated bool, writeExpr func(query.Expr) error) error {
	return writeILIKEWithLower(b, left, right, negated, writeExpr)
}

func (d *MySQLDialect) WriteLimitOffset(b *strings.Builder, limit, offset *int64) {
	if limit == nil && offset != nil {
		fmt.Fprintf(b, " LIMIT %s OFFSET %d", mysqlMaxLimit, *offset)
		return
	}
	writeStandardLimitOffset(b, limit, offset)
}

func (d *MySQLDialect) SupportsNullsOrdering() bool { return false }

func (d *MySQLDialect) SupportsJoin(kind query.JoinKind) bool { return kind != query.FullJoin }

func (d *MySQLDialect) SupportsReturning() bool {
	return false // MySQL uses LAST_INSERT_ID() instead
}

func (d *MySQLDialect) WrapSetOpQueries() bool { return true }

func (d *MySQLDialect) RowValues() RowValueSupport {
	return RowValueSupport{Compare: true, In: true}
}

// =============================================================================
// SQLite Dialect
// =============================================================================

// SQLiteDialect implements Dialect for SQLite 3.39+.
type SQLiteDialect struct{}

var sqliteFuncs = map[string]string{
	"RAND":        "RANDOM",
	"CHAR_LENGTH": "LENGTH",
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) QuoteIdentifier(name string) string { return doubleQuote(name) }

func (d *SQLiteDialect) Placeholder(int) string { return "?" }

func (d *SQLiteDialect) NowFunc() string { return "datetime('now')" }

func (d *SQLiteDialect) FuncName(name string) string { return mapFunc(sqliteFuncs, name) }

func (d *SQLiteDialect) ConcatOperator() string { return "||" }

func (d *SQLiteDialect) WriteILIKE(b *strings.Builder, left, right query.Expr, negated bool, writeExpr func(query.Expr) error) error {
	return writeILIKEWithLower(b, left, right, negated, writeExpr)
}

func (d *SQLiteDialect) WriteLimitOffset(b *strings.Builder, limit, offset *int64) {
	if limit == nil && offset != nil {
		fmt.Fprintf(b, " LIMIT -1 OFFSET %d", *offset)
		return
	}
	writeStandardLimitOffset(b, limit, offset)
}

func (d *SQLiteDialect) SupportsNullsOrdering() bool { return true }

func (d *SQLiteDialect) SupportsJoin(query.JoinKind) bool { return true }

func (d *SQLiteDialect) SupportsReturning() bool { return true }

// WrapSetOpQueries is false: SQLite rejects parenthesized compound members.
func (d *SQLiteDialect) WrapSetOpQueries() bool { return false }

// RowValues: SQLite compares row values but has no row-value IN list or
// row-value NULL test.
func (d *SQLiteDialect) RowValues() RowValueSupport {
	return RowValueSupport{Compare: true}
}

// =============================================================================
// Generic Dialect
// =============================================================================

// GenericDialect renders portable, readable SQL: ? placeholders,
// identifiers quoted only when they need it, row values always expanded.
// It is meant for logging and tests rather than a particular server.
type GenericDialect struct{}

func (d *GenericDialect) Name() string { return "generic" }

func (d *GenericDialect) QuoteIdentifier(name string) string {
	if isPlainIdentifier(name) && !isReserved(name) {
		return name
	}
	return doubleQuote(name)
}

func (d *GenericDialect) Placeholder(int) string { return "?" }

func (d *GenericDialect) NowFunc() string { return "CURRENT_TIMESTAMP" }

func (d *GenericDialect) FuncName(name string) string { return name }

func (d *GenericDialect) ConcatOperator() string { return "||" }

func (d *GenericDialect) WriteILIKE(b *strings.Builder, left, right query.Expr, negated bool, writeExpr func(query.Expr) error) error {
	return writeILIKEWithLower(b, left, right, negated, writeExpr)
}

func (d *GenericDialect) WriteLimitOffset(b *strings.Builder, limit, offset *int64) {
	writeStandardLimitOffset(b, limit, offset)
}

func (d *GenericDialect) SupportsNullsOrdering() bool { return true }

func (d *GenericDialect) SupportsJoin(query.JoinKind) bool { return true }

func (d *GenericDialect) SupportsReturning() bool { return true }

func (d *GenericDialect) WrapSetOpQueries() bool { return true }

func (d *GenericDialect) RowValues() RowValueSupport { return RowValueSupport{} }

// =============================================================================
// Dialect Singletons
// =============================================================================

var (
	Postgres Dialect = &PostgresDialect{}
	MySQL    Dialect = &MySQLDialect{}
	SQLite   Dialect = &SQLiteDialect{}
	Generic  Dialect = &GenericDialect{}
)

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "generic", "":
		return Generic, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}
