// Package runner executes typed statements: it renders a builder for the
// runner's dialect, hands the SQL to an Executor and decodes the rows into
// the shape the caller declared.
//
//	r := runner.New(runner.FromSQL(db), compile.SQLite)
//	names, err := runner.All(ctx, r, query.From(p).Select(name), decode.Scalar[string]())
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/shipq/typedsql/logging"
	"github.com/shipq/typedsql/query"
	"github.com/shipq/typedsql/query/compile"
	"github.com/shipq/typedsql/query/decode"
)

// ErrUnboundParam is returned, before anything reaches the executor, when
// a statement still has named parameters without values.
var ErrUnboundParam = compile.ErrUnboundParam

// Runner pairs an executor with the dialect its SQL is rendered for.
// A Runner is immutable and safe for concurrent use when its executor is.
type Runner struct {
	exec    Executor
	dialect compile.Dialect
	logger  *slog.Logger
}

// New creates a runner. Statements are logged at debug level to a discard
// logger until WithLogger sets one.
func New(exec Executor, dialect compile.Dialect) *Runner {
	return &Runner{
		exec:    exec,
		dialect: dialect,
		logger:  slog.New(slog.DiscardHandler),
	}
}

// WithLogger returns a copy of the runner logging to logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	c := *r
	c.logger = logger
	return &c
}

// WithExecutor returns a copy of the runner using exec, for example a
// transaction opened on the original connection.
func (r *Runner) WithExecutor(exec Executor) *Runner {
	c := *r
	c.exec = exec
	return &c
}

// Dialect returns the runner's dialect.
func (r *Runner) Dialect() compile.Dialect {
	return r.dialect
}

// ToSQL builds and renders b without executing it.
func (r *Runner) ToSQL(b query.QueryBuilder) (compile.Statement, error) {
	return compile.ToSQL(b, r.dialect)
}

// Option configures a single execution.
type Option func(*call)

type call struct {
	params map[string]any
}

// WithParams binds named parameters by name.
func WithParams(params map[string]any) Option {
	return func(c *call) {
		if c.params == nil {
			c.params = make(map[string]any, len(params))
		}
		for k, v := range params {
			c.params[k] = v
		}
	}
}

// prepare builds, renders and binds b. width is the number of columns the
// caller's shape consumes, or -1 for statements whose rows are not read.
func (r *Runner) prepare(b query.QueryBuilder, width int, present []bool, opts []Option) (compile.Statement, error) {
	var c call
	for _, opt := range opts {
		opt(&c)
	}

	q, err := b.Build()
	if err != nil {
		return compile.Statement{}, err
	}
	if width >= 0 && q.Width() != width {
		return compile.Statement{}, &decode.DecodeError{Column: -1, Expected: width, Actual: q.Width()}
	}
	if err := checkOptional(q, present); err != nil {
		return compile.Statement{}, err
	}

	stmt, err := compile.Render(q, r.dialect)
	if err != nil {
		return compile.Statement{}, err
	}
	if c.params != nil {
		if stmt, err = stmt.Bind(c.params); err != nil {
			return compile.Statement{}, err
		}
	}
	if err := stmt.Ready(); err != nil {
		return compile.Statement{}, err
	}
	return stmt, nil
}

// checkOptional rejects a shape that decodes an entity from the nullable
// side of an outer join as if every row had one.
func checkOptional(q *query.Query, present []bool) error {
	if q.Kind != query.SelectQuery || q.SetOp != nil || present == nil {
		return nil
	}
	off := 0
	for _, it := range q.Projection {
		w := query.ItemsWidth([]query.SelectItem{it})
		if it.Optional {
			for i := off; i < off+w && i < len(present); i++ {
				if present[i] {
					return &decode.DecodeError{
						Column: i,
						Name:   it.Entity.Table.Name,
						Want:   "Optional shape",
						Got:    "outer-joined entity",
						Err:    decode.ErrAbsentEntity,
					}
				}
			}
		}
		off += w
	}
	return nil
}

func (r *Runner) log(ctx context.Context, stmt compile.Statement, start time.Time, err error, extra ...slog.Attr) {
	if !r.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := append(logging.StatementAttrs(stmt), slog.Duration("duration", time.Since(start)))
	attrs = append(attrs, extra...)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "statement", attrs...)
}

// Each streams the rows of b through fn, stopping at the first error from
// the backend, the decoder or fn.
func Each[R any](ctx context.Context, r *Runner, b query.QueryBuilder, shape decode.Shape[R], fn func(R) error, opts ...Option) error {
	stmt, err := r.prepare(b, shape.Width(), decode.Presence(shape), opts)
	if err != nil {
		return err
	}

	start := time.Now()
	n := 0
	err = each(ctx, r.exec, stmt, shape, func(v R) error {
		n++
		return fn(v)
	})
	logged := err
	if _, stopped := err.(errStop); stopped {
		logged = nil
	}
	r.log(ctx, stmt, start, logged, slog.Int("rows", n))
	return err
}

func each[R any](ctx context.Context, exec Executor, stmt compile.Statement, shape decode.Shape[R], fn func(R) error) (err error) {
	rows, err := exec.QueryRows(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return err
		}
		v, err := decode.Decode(raw, shape)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// All runs b and decodes every row.
func All[R any](ctx context.Context, r *Runner, b query.QueryBuilder, shape decode.Shape[R], opts ...Option) ([]R, error) {
	var out []R
	err := Each(ctx, r, b, shape, func(v R) error {
		out = append(out, v)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// errStop ends iteration after the first row.
type errStop struct{}

func (errStop) Error() string { return "stop" }

// One runs b and decodes its first row. found is false when b returns no
// rows; further rows are not read.
func One[R any](ctx context.Context, r *Runner, b query.QueryBuilder, shape decode.Shape[R], opts ...Option) (v R, found bool, err error) {
	err = Each(ctx, r, b, shape, func(row R) error {
		v, found = row, true
		return errStop{}
	}, opts...)
	if _, stopped := err.(errStop); stopped {
		err = nil
	}
	return v, found, err
}

// Exec runs a statement whose rows are not read and returns the number of
// affected rows.
func Exec(ctx context.Context, r *Runner, b query.QueryBuilder, opts ...Option) (int64, error) {
	stmt, err := r.prepare(b, -1, nil, opts)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := r.exec.ExecMutation(ctx, stmt.SQL, stmt.Args)
	r.log(ctx, stmt, start, err, slog.Int64("affected", n))
	return n, err
}
