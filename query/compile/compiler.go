package compile

import (
	"strings"

	"github.com/shipq/typedsql/query"
)

// Compiler compiles statement IR to SQL for a specific dialect.
// A Compiler is not safe for concurrent use; Render creates one per call.
type Compiler struct {
	dialect Dialect
	state   *CompilerState
}

// CompilerState holds the mutable state of one top-level compilation. It is
// shared by nested subqueries so placeholder numbering and aliases stay
// global to the statement.
type CompilerState struct {
	Args  []any
	Names []string

	aliases *AliasTable
	scope   *scope
	// bare is the mutation target whose columns render unqualified
	// (RETURNING lists).
	bare query.Source
}

// NewCompiler creates a new compiler for the given dialect.
func NewCompiler(dialect Dialect) *Compiler {
	return &Compiler{
		dialect: dialect,
		state:   &CompilerState{},
	}
}

// Render compiles q for dialect d. It is a pure function of its inputs.
func Render(q *query.Query, d Dialect) (Statement, error) {
	return NewCompiler(d).Compile(q)
}

// ToSQL builds and renders a statement in one step.
func ToSQL(b query.QueryBuilder, d Dialect) (Statement, error) {
	q, err := b.Build()
	if err != nil {
		return Statement{}, err
	}
	return Render(q, d)
}

// Compile compiles a statement. State is reset on every call.
func (c *Compiler) Compile(q *query.Query) (Statement, error) {
	if q == nil {
		return Statement{}, c.fail(ErrCodeUnknownNode, "query is nil")
	}

	c.state = &CompilerState{aliases: NewAliasTable(q)}

	var b strings.Builder
	if err := c.compileInto(q, &b, nil); err != nil {
		return Statement{}, err
	}

	return Statement{
		SQL:     b.String(),
		Args:    c.state.Args,
		Names:   c.state.Names,
		Dialect: c.dialect.Name(),
	}, nil
}

// Aliases returns the alias table of the last compilation.
func (c *Compiler) Aliases() *AliasTable {
	return c.state.aliases
}

// compileInto compiles q in a new scope whose parent is parent. It does
// not reset state, so subqueries share placeholders and aliases with the
// enclosing statement.
func (c *Compiler) compileInto(q *query.Query, b *strings.Builder, parent *scope) error {
	if q.SetOp != nil {
		return c.compileSetOp(q, b, parent)
	}

	prev := c.state.scope
	c.state.scope = newScope(parent)
	defer func() { c.state.scope = prev }()

	switch q.Kind {
	case query.SelectQuery:
		return c.compileSelect(q, b)
	case query.InsertQuery:
		return c.compileInsert(q, b)
	case query.UpdateQuery:
		return c.compileUpdate(q, b)
	case query.DeleteQuery:
		return c.compileDelete(q, b)
	default:
		return c.fail(ErrCodeUnknownNode, "unknown query kind %q", q.Kind)
	}
}

// =============================================================================
// SELECT Compilation
// =============================================================================

func (c *Compiler) compileSelect(q *query.Query, b *strings.Builder) error {
	if len(q.Projection) == 0 {
		return c.fail(ErrCodeEmptyProjection, "SELECT requires at least one projection")
	}
	if err := c.checkLimits(q); err != nil {
		return err
	}
	// Sources are declared before the projection is written so that
	// subqueries in the projection see them and number after them.
	if err := c.declareSources(q.From); err != nil {
		return err
	}

	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if err := c.writeItems(b, q.Projection); err != nil {
		return err
	}

	if q.From != nil {
		b.WriteString(" FROM ")
		if err := c.writeSource(b, q.From); err != nil {
			return err
		}
	}

	if err := c.writeWhere(b, q.Where); err != nil {
		return err
	}

	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		if err := c.writeList(b, q.GroupBy); err != nil {
			return err
		}
	}

	if q.Having != nil {
		b.WriteString(" HAVING ")
		if err := c.writeExpr(b, q.Having); err != nil {
			return err
		}
	}

	if err := c.writeOrderBy(b, q.OrderBy); err != nil {
		return err
	}

	if q.Limit != nil || q.Offset != nil {
		c.dialect.WriteLimitOffset(b, q.Limit, q.Offset)
	}
	return nil
}

func (c *Compiler) checkLimits(q *query.Query) error {
	if q.Limit != nil && *q.Limit < 0 {
		return c.fail(ErrCodeNegativeLimit, "LIMIT must be non-negative, got %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		return c.fail(ErrCodeNegativeLimit, "OFFSET must be non-negative, got %d", *q.Offset)
	}
	return nil
}

// declareSources allocates aliases for the FROM tree and makes its
// sources visible in the current scope.
func (c *Compiler) declareSources(src query.Source) error {
	switch s := src.(type) {
	case nil:
		return nil
	case *query.TableSource:
		if s.Table == nil {
			return c.fail(ErrCodeMissingTarget, "table source has no table")
		}
		c.state.aliases.Allocate(s)
		c.state.scope.declare(s)
	case *query.DerivedSource:
		if s.Query == nil {
			return c.fail(ErrCodeMissingTarget, "derived table has no query")
		}
		c.state.aliases.Allocate(s)
		c.state.scope.declare(s)
	case *query.JoinSource:
		if err := c.declareSources(s.Left); err != nil {
			return err
		}
		return c.declareSources(s.Right)
	default:
		return c.fail(ErrCodeUnknownNode, "unknown source %T", src)
	}
	return nil
}

var joinKeywords = map[query.JoinKind]string{
	query.InnerJoin: "JOIN",
	query.LeftJoin:  "LEFT JOIN",
	query.RightJoin: "RIGHT JOIN",
	query.FullJoin:  "FULL JOIN",
	query.CrossJoin: "CROSS JOIN",
}

func (c *Compiler) writeSource(b *strings.Builder, src query.Source) error {
	switch s := src.(type) {
	case *query.TableSource:
		b.WriteString(c.dialect.QuoteIdentifier(s.Name()))
		alias, _ := c.state.aliases.Lookup(s)
		if alias != s.Name() {
			b.WriteString(" AS ")
			b.WriteString(c.dialect.QuoteIdentifier(alias))
		}
		return nil

	case *query.DerivedSource:
		alias, _ := c.state.aliases.Lookup(s)
		b.WriteString("(")
		// Derived tables see the enclosing query's outer scopes but not
		// their sibling FROM items.
		if err := c.compileInto(s.Query, b, c.state.scope.parent); err != nil {
			return err
		}
		b.WriteString(") AS ")
		b.WriteString(c.dialect.QuoteIdentifier(alias))
		return nil

	case *query.JoinSource:
		keyword, ok := joinKeywords[s.Kind]
		if !ok {
			return c.fail(ErrCodeUnknownNode, "unknown join kind %q", s.Kind)
		}
		if !c.dialect.SupportsJoin(s.Kind) {
			return c.fail(ErrCodeUnsupported, "%s JOIN is not supported", s.Kind)
		}
		if err := c.writeSource(b, s.Left); err != nil {
			return err
		}
		b.WriteString(" ")
		b.WriteString(keyword)
		b.WriteString(" ")
		if _, nested := s.Right.(*query.JoinSource); nested {
			b.WriteString("(")
			if err := c.writeSource(b, s.Right); err != nil {
				return err
			}
			b.WriteString(")")
		} else if err := c.writeSource(b, s.Right); err != nil {
			return err
		}
		if s.Kind == query.CrossJoin {
			return nil
		}
		if s.On == nil {
			return c.fail(ErrCodeUnknownNode, "%s JOIN requires an ON condition", s.Kind)
		}
		b.WriteString(" ON (")
		if err := c.writeExpr(b, s.On); err != nil {
			return err
		}
		b.WriteString(")")
		return nil

	default:
		return c.fail(ErrCodeUnknownNode, "unknown source %T", src)
	}
}

func (c *Compiler) writeItems(b *strings.Builder, items []query.SelectItem) error {
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if it.Entity != nil {
			if err := c.writeEntity(b, it.Entity); err != nil {
				return err
			}
			continue
		}
		if err := c.writeExpr(b, it.Expr); err != nil {
			return err
		}
		if it.Alias != "" {
			if err := ValidateIdentifier(it.Alias); err != nil {
				return c.fail(ErrCodeInvalidIdentifier, "invalid column alias: %v", err)
			}
			b.WriteString(" AS ")
			b.WriteString(c.dialect.QuoteIdentifier(it.Alias))
		}
	}
	return nil
}

// writeEntity expands an entity to its declared columns, in order, for
// that one source only.
func (c *Compiler) writeEntity(b *strings.Builder, src *query.TableSource) error {
	if src.Table == nil {
		return c.fail(ErrCodeMissingTarget, "entity source has no table")
	}
	for i, col := range src.Table.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := c.writeColumn(b, query.ColumnExpr{Source: src, Name: col.Name}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) writeWhere(b *strings.Builder, where query.Expr) error {
	if where == nil {
		return nil
	}
	b.WriteString(" WHERE ")
	return c.writeExpr(b, where)
}

func (c *Compiler) writeOrderBy(b *strings.Builder, terms []query.OrderTerm) error {
	if len(terms) == 0 {
		return nil
	}
	b.WriteString(" ORDER BY ")
	for i, t := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := c.writeExpr(b, t.Expr); err != nil {
			return err
		}
		if t.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
		if t.Nulls == query.NullsDefault {
			continue
		}
		if !c.dialect.SupportsNullsOrdering() {
			return c.fail(ErrCodeUnsupported, "NULLS FIRST/LAST is not supported")
		}
		if t.Nulls == query.NullsFirst {
			b.WriteString(" NULLS FIRST")
		} else {
			b.WriteString(" NULLS LAST")
		}
	}
	return nil
}

// =============================================================================
// Set Operations
// =============================================================================

func (c *Compiler) compileSetOp(q *query.Query, b *strings.Builder, parent *scope) error {
	op := q.SetOp
	if op.Left == nil || op.Right == nil {
		return c.fail(ErrCodeUnknownNode, "%s requires two queries", op.Op)
	}
	if len(q.OrderBy) > 0 {
		return c.fail(ErrCodeUnsupported, "ORDER BY on a compound statement is not supported")
	}
	if err := c.checkLimits(q); err != nil {
		return err
	}

	wrap := c.dialect.WrapSetOpQueries()
	members := []*query.Query{op.Left, op.Right}
	for i, m := range members {
		if !wrap {
			if m.SetOp != nil && i == 1 {
				return c.fail(ErrCodeUnsupported, "nested compound on the right of %s needs parentheses", op.Op)
			}
			if len(m.OrderBy) > 0 || m.Limit != nil || m.Offset != nil {
				return c.fail(ErrCodeUnsupported, "%s members cannot carry ORDER BY/LIMIT/OFFSET", op.Op)
			}
		}
		if i == 1 {
			b.WriteString(" ")
			b.WriteString(string(op.Op))
			b.WriteString(" ")
		}
		if wrap {
			b.WriteString("(")
		}
		if err := c.compileInto(m, b, parent); err != nil {
			return err
		}
		if wrap {
			b.WriteString(")")
		}
	}

	if q.Limit != nil || q.Offset != nil {
		c.dialect.WriteLimitOffset(b, q.Limit, q.Offset)
	}
	return nil
}

// =============================================================================
// INSERT / UPDATE / DELETE Compilation
// =============================================================================

// mutationTarget returns the single table a write statement modifies.
func (c *Compiler) mutationTarget(q *query.Query) (*query.TableSource, error) {
	switch t := q.From.(type) {
	case *query.TableSource:
		if t.Table == nil {
			return nil, c.fail(ErrCodeMissingTarget, "%s target has no table", q.Kind)
		}
		if q.Limit != nil || q.Offset != nil {
			return nil, c.fail(ErrCodeUnsupported, "LIMIT/OFFSET apply only to SELECT")
		}
		return t, nil
	case *query.JoinSource:
		return nil, c.fail(ErrCodeJoinTarget, "%s target cannot be a join", q.Kind)
	default:
		return nil, c.fail(ErrCodeMissingTarget, "%s requires a target table", q.Kind)
	}
}

func (c *Compiler) compileInsert(q *query.Query, b *strings.Builder) error {
	target, err := c.mutationTarget(q)
	if err != nil {
		return err
	}
	if len(q.Rows) == 0 || len(q.Rows[0]) == 0 {
		return c.fail(ErrCodeNoAssignments, "INSERT requires at least one value")
	}
	c.state.aliases.pin(target)
	c.state.scope.declare(target)

	b.WriteString("INSERT INTO ")
	b.WriteString(c.dialect.QuoteIdentifier(target.Name()))
	b.WriteString(" (")
	first := q.Rows[0]
	for i, a := range first {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.dialect.QuoteIdentifier(a.Column.Name))
	}
	b.WriteString(") VALUES ")

	for r, row := range q.Rows {
		if len(row) != len(first) {
			return c.fail(ErrCodeCompositeArity, "row %d has %d values, want %d", r, len(row), len(first))
		}
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i, a := range row {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := c.writeExpr(b, a.Value); err != nil {
				return err
			}
		}
		b.WriteString(")")
	}

	return c.writeReturning(b, q.Returning, target)
}

func (c *Compiler) compileUpdate(q *query.Query, b *strings.Builder) error {
	target, err := c.mutationTarget(q)
	if err != nil {
		return err
	}
	if len(q.Set) == 0 {
		return c.fail(ErrCodeNoAssignments, "UPDATE requires at least one assignment")
	}
	if err := c.declareSources(target); err != nil {
		return err
	}

	b.WriteString("UPDATE ")
	if err := c.writeSource(b, target); err != nil {
		return err
	}
	b.WriteString(" SET ")
	for i, a := range q.Set {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.dialect.QuoteIdentifier(a.Column.Name))
		b.WriteString(" = ")
		if err := c.writeExpr(b, a.Value); err != nil {
			return err
		}
	}

	if err := c.writeWhere(b, q.Where); err != nil {
		return err
	}
	return c.writeReturning(b, q.Returning, target)
}

func (c *Compiler) compileDelete(q *query.Query, b *strings.Builder) error {
	target, err := c.mutationTarget(q)
	if err != nil {
		return err
	}
	if err := c.declareSources(target); err != nil {
		return err
	}

	b.WriteString("DELETE FROM ")
	if err := c.writeSource(b, target); err != nil {
		return err
	}
	if err := c.writeWhere(b, q.Where); err != nil {
		return err
	}
	return c.writeReturning(b, q.Returning, target)
}

func (c *Compiler) writeReturning(b *strings.Builder, items []query.SelectItem, target *query.TableSource) error {
	if len(items) == 0 {
		return nil
	}
	if !c.dialect.SupportsReturning() {
		return c.fail(ErrCodeUnsupported, "RETURNING is not supported")
	}
	b.WriteString(" RETURNING ")
	c.state.bare = target
	defer func() { c.state.bare = nil }()
	return c.writeItems(b, items)
}
