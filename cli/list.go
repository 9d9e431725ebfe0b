package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shipq/typedsql/crud"
	"github.com/shipq/typedsql/dburl"
	"github.com/shipq/typedsql/query/decode"
	"github.com/shipq/typedsql/runner"
	"github.com/shipq/typedsql/schema"
)

// ListOptions holds the list command's flags.
type ListOptions struct {
	URL    string
	Schema string
	Limit  int64
	Offset int64
	Scope  string
	Value  string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "Print a page of rows from a table as JSON lines",
		Long: `Run the generated list statement for a table and print each row as one
JSON object, keys in column order. Soft-deleted rows are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.URL, "url", "u", "", "database URL (default: [db] url or DATABASE_URL)")
	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file (default: [schema] path)")
	cmd.Flags().Int64VarP(&opts.Limit, "limit", "n", 0, "rows per page (default: [crud.<table>] limit)")
	cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "rows to skip")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "scope column; bind its value with --scope-value")
	cmd.Flags().StringVar(&opts.Value, "scope-value", "", "value of the scope column")

	return cmd
}

func runList(ctx context.Context, rootOpts *RootOptions, opts *ListOptions, tableName string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := rootOpts.cfg
	out := rootOpts.output(cmd)

	url := or(opts.URL, cfg.DB.URL)
	if url == "" {
		return missing("database URL", "url", "[db] url")
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return commandError("--limit/--offset", fmt.Errorf("must be non-negative"))
	}

	s, err := schema.Load(or(opts.Schema, cfg.Schema.Path))
	if err != nil {
		return commandError("load schema", err)
	}
	table, ok := s.Table(tableName)
	if !ok {
		return commandError("list", fmt.Errorf("no table %q in schema", tableName))
	}
	builders, err := crud.For(table, crud.Options{ScopeColumn: opts.Scope})
	if err != nil {
		return commandError("list", err)
	}

	limit := opts.Limit
	if limit == 0 {
		limit = int64(cfg.ListLimit(table.Name))
	}

	r, closeDB, err := connect(ctx, url)
	if err != nil {
		return err
	}
	defer closeDB()
	r = r.WithLogger(rootOpts.logger.With(slog.String("table", table.Name)))

	var runOpts []runner.Option
	if opts.Scope != "" {
		runOpts = append(runOpts, runner.WithParams(map[string]any{crud.ScopeParam: opts.Value}))
	}

	enc := json.NewEncoder(out.Out)
	n := 0
	err = runner.Each(ctx, r, builders.List(limit, opts.Offset), decode.Entity(table), func(rec decode.Record) error {
		n++
		return enc.Encode(rec)
	}, runOpts...)
	if err != nil {
		return err
	}
	rootOpts.logger.Info("listed rows", slog.String("table", table.Name), slog.Int("rows", n))
	return nil
}

// connect picks a native pgx pool for postgres URLs and database/sql for
// the others.
func connect(ctx context.Context, url string) (*runner.Runner, func(), error) {
	t, err := dburl.Parse(url)
	if err != nil {
		return nil, nil, commandError("database URL", err)
	}
	dialect, err := t.SQLDialect()
	if err != nil {
		return nil, nil, commandError("database URL", err)
	}

	if t.Dialect == dburl.DialectPostgres {
		pool, err := dburl.OpenPool(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return runner.New(runner.FromPgx(pool), dialect), pool.Close, nil
	}

	db, dialect, err := dburl.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return runner.New(runner.FromSQL(db), dialect), func() { db.Close() }, nil
}
