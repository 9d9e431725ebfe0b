package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shipq/typedsql/crud"
	"github.com/shipq/typedsql/query/compile"
	"github.com/shipq/typedsql/schema"
)

// CrudOptions holds the crud command's flags.
type CrudOptions struct {
	Schema  string
	Dialect string
	Table   string
	Scope   string
	JSON    bool
}

type renderedStatement struct {
	Table  string   `json:"table"`
	Op     string   `json:"op"`
	SQL    string   `json:"sql"`
	Params []string `json:"params"`
}

// NewCrudCommand creates the crud command.
func NewCrudCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CrudOptions{}

	cmd := &cobra.Command{
		Use:   "crud",
		Short: "Print CRUD SQL for every table in a schema file",
		Long: `Render get, list, insert, update and delete statements for each table
with a primary key. Parameters are named after the columns they bind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrud(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file (default: [schema] path)")
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "SQL dialect (postgres|mysql|sqlite|generic)")
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "only render this table")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "column every filter is scoped by")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print statements as JSON")

	return cmd
}

func runCrud(rootOpts *RootOptions, opts *CrudOptions, cmd *cobra.Command) error {
	cfg := rootOpts.cfg
	out := rootOpts.output(cmd)

	path := or(opts.Schema, cfg.Schema.Path)
	s, err := schema.Load(path)
	if err != nil {
		return commandError("load schema", err)
	}

	var dialect compile.Dialect
	if opts.Dialect != "" {
		dialect, err = compile.ByName(opts.Dialect)
	} else {
		dialect, err = cfg.SQLDialect()
	}
	if err != nil {
		return commandError("--dialect", err)
	}

	tables := s.Tables
	if opts.Table != "" {
		t, ok := s.Table(opts.Table)
		if !ok {
			return commandError("--table", fmt.Errorf("no table %q in %s", opts.Table, path))
		}
		tables = []*schema.Table{t}
	}

	var rendered []renderedStatement
	for _, t := range tables {
		if len(t.PrimaryKey()) == 0 {
			out.Warnf("skipping %s: no primary key", t.Name)
			continue
		}
		set, err := crud.GenerateSQLWith(t, dialect, crud.Options{ScopeColumn: opts.Scope}, int64(cfg.ListLimit(t.Name)))
		if err != nil {
			return err
		}
		for _, n := range set.Statements() {
			rendered = append(rendered, renderedStatement{
				Table:  t.Name,
				Op:     n.Op,
				SQL:    n.Statement.SQL,
				Params: n.Statement.Unbound(),
			})
		}
	}
	rootOpts.logger.Debug("rendered crud statements",
		slog.String("dialect", dialect.Name()),
		slog.Int("tables", len(tables)),
		slog.Int("statements", len(rendered)))

	if opts.JSON {
		enc := json.NewEncoder(out.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rendered)
	}
	for _, r := range rendered {
		out.Infof("-- %s.%s %v\n%s;\n", r.Table, r.Op, r.Params, r.SQL)
	}
	return nil
}
