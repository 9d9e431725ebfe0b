package crud

import (
	"fmt"

	"github.com/shipq/typedsql/query"
	"github.com/shipq/typedsql/query/compile"
	"github.com/shipq/typedsql/schema"
)

// DefaultLimit is the page size of the generated List statement.
const DefaultLimit = 50

// Set holds the rendered CRUD statements for one table. Update is the
// zero Statement for tables without updatable columns, and SoftDelete for
// tables without a deleted_at column.
type Set struct {
	Table      string
	Get        compile.Statement
	List       compile.Statement
	Insert     compile.Statement
	Update     compile.Statement
	Delete     compile.Statement
	SoftDelete compile.Statement
}

// GenerateSQL renders the CRUD statements for t in dialect d. INSERT
// returns the new row where the dialect supports RETURNING.
func GenerateSQL(t *schema.Table, d compile.Dialect) (Set, error) {
	return GenerateSQLWith(t, d, Options{}, DefaultLimit)
}

// GenerateSQLWith is GenerateSQL with options and a List page size.
func GenerateSQLWith(t *schema.Table, d compile.Dialect, opts Options, limit int64) (Set, error) {
	b, err := For(t, opts)
	if err != nil {
		return Set{}, err
	}

	set := Set{Table: t.Name}
	render := func(dst *compile.Statement, op string, qb query.QueryBuilder) error {
		stmt, err := compile.ToSQL(qb, d)
		if err != nil {
			return fmt.Errorf("table %s: %s: %w", t.Name, op, err)
		}
		*dst = stmt
		return nil
	}

	if err := render(&set.Get, "get", b.Get()); err != nil {
		return Set{}, err
	}
	if err := render(&set.List, "list", b.List(limit, 0)); err != nil {
		return Set{}, err
	}
	if ib, err := b.Insert(d.SupportsReturning()); err != nil {
		return Set{}, err
	} else if err := render(&set.Insert, "insert", ib); err != nil {
		return Set{}, err
	}
	if len(b.updatable()) > 0 {
		ub, _ := b.Update()
		if err := render(&set.Update, "update", ub); err != nil {
			return Set{}, err
		}
	}
	if err := render(&set.Delete, "delete", b.Delete()); err != nil {
		return Set{}, err
	}
	if b.SoftDeletes() {
		sb, _ := b.SoftDelete()
		if err := render(&set.SoftDelete, "soft delete", sb); err != nil {
			return Set{}, err
		}
	}
	return set, nil
}

// Statements returns the non-empty statements of the set in a fixed
// order, keyed by operation name.
func (s Set) Statements() []Named {
	all := []Named{
		{"get", s.Get},
		{"list", s.List},
		{"insert", s.Insert},
		{"update", s.Update},
		{"delete", s.Delete},
		{"soft_delete", s.SoftDelete},
	}
	out := all[:0]
	for _, n := range all {
		if n.Statement.SQL != "" {
			out = append(out, n)
		}
	}
	return out
}

// Named is a statement with its operation name.
type Named struct {
	Op        string
	Statement compile.Statement
}
