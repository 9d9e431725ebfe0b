package query

import "github.com/shipq/typedsql/schema"

// Kind is the statement kind.
type Kind string

const (
	SelectQuery Kind = "SELECT"
	InsertQuery Kind = "INSERT"
	UpdateQuery Kind = "UPDATE"
	DeleteQuery Kind = "DELETE"
)

// Source is a FROM item: a table reference, a derived table or a join.
type Source interface {
	sourceNode()
}

// TableSource is one logical reference to an entity. Identity is the
// pointer: two TableSources over the same table are different references
// and receive different aliases.
type TableSource struct {
	Table *schema.Table
}

func (*TableSource) sourceNode() {}

// Name returns the underlying table name.
func (s *TableSource) Name() string { return s.Table.Name }

// DerivedSource is a subquery in FROM.
type DerivedSource struct {
	Query *Query
}

func (*DerivedSource) sourceNode() {}

// JoinKind is the join type.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
	RightJoin JoinKind = "RIGHT"
	FullJoin  JoinKind = "FULL"
	CrossJoin JoinKind = "CROSS"
)

// JoinSource joins two sources. On is nil for cross joins.
// Left and Right keep construction order; outer joins depend on it.
type JoinSource struct {
	Kind  JoinKind
	Left  Source
	Right Source
	On    Expr
}

func (*JoinSource) sourceNode() {}

var (
	_ Source = (*TableSource)(nil)
	_ Source = (*DerivedSource)(nil)
	_ Source = (*JoinSource)(nil)
)

// SelectItem is one projection entry. When Entity is set the item stands
// for all declared columns of that source, and Expr is nil.
type SelectItem struct {
	Expr   Expr
	Alias  string
	Entity *TableSource
	// Optional marks an entity on the nullable side of an outer join. The
	// runner refuses to decode such an item with a shape not wrapped in
	// decode.Optional.
	Optional bool
}

func (s SelectItem) toSelectItem() SelectItem { return s }

// NullsOrder requests explicit NULL placement in ORDER BY.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Expr  Expr
	Desc  bool
	Nulls NullsOrder
}

// NullsFirst returns a copy of the term with NULLS FIRST.
func (o OrderTerm) NullsFirst() OrderTerm {
	o.Nulls = NullsFirst
	return o
}

// NullsLast returns a copy of the term with NULLS LAST.
func (o OrderTerm) NullsLast() OrderTerm {
	o.Nulls = NullsLast
	return o
}

// Assignment is column = value in SET or a VALUES row.
type Assignment struct {
	Column ColumnExpr
	Value  Expr
}

// SetOpKind is a compound SELECT operator.
type SetOpKind string

const (
	Union     SetOpKind = "UNION"
	UnionAll  SetOpKind = "UNION ALL"
	Intersect SetOpKind = "INTERSECT"
	Except    SetOpKind = "EXCEPT"
)

// SetOperation combines two SELECTs.
type SetOperation struct {
	Left  *Query
	Op    SetOpKind
	Right *Query
}

// Query is a complete statement.
//
// For INSERT, UPDATE and DELETE, From is the target. Rows holds one
// assignment list per VALUES row; Set holds UPDATE assignments.
// A Query with SetOp set is a compound SELECT and ignores the other
// SELECT fields except OrderBy, Limit and Offset.
type Query struct {
	Kind       Kind
	Distinct   bool
	From       Source
	Projection []SelectItem
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []OrderTerm
	Limit      *int64
	Offset     *int64
	Set        []Assignment
	Rows       [][]Assignment
	Returning  []SelectItem
	SetOp      *SetOperation
}

func (q *Query) clone() *Query {
	c := *q
	c.Projection = append([]SelectItem(nil), q.Projection...)
	c.GroupBy = append([]Expr(nil), q.GroupBy...)
	c.OrderBy = append([]OrderTerm(nil), q.OrderBy...)
	c.Set = append([]Assignment(nil), q.Set...)
	c.Rows = append([][]Assignment(nil), q.Rows...)
	c.Returning = append([]SelectItem(nil), q.Returning...)
	return &c
}

// Width is the number of output columns, with entity items expanded.
func (q *Query) Width() int {
	if q.SetOp != nil {
		return q.SetOp.Left.Width()
	}
	items := q.Projection
	if q.Kind != SelectQuery {
		items = q.Returning
	}
	return ItemsWidth(items)
}

// ItemsWidth counts output columns of a projection list.
func ItemsWidth(items []SelectItem) int {
	n := 0
	for _, it := range items {
		if it.Entity != nil {
			n += len(it.Entity.Table.Columns)
		} else {
			n++
		}
	}
	return n
}

// OutputNames returns the output column names of a SELECT projection:
// the alias when set, the column name for plain column items, the entity's
// column names for entity items, and "" for unnamed expressions.
func (q *Query) OutputNames() []string {
	if q.SetOp != nil {
		return q.SetOp.Left.OutputNames()
	}
	var names []string
	for _, it := range q.Projection {
		switch {
		case it.Entity != nil:
			names = append(names, it.Entity.Table.ColumnNames()...)
		case it.Alias != "":
			names = append(names, it.Alias)
		default:
			if c, ok := it.Expr.(ColumnExpr); ok {
				names = append(names, c.Name)
			} else {
				names = append(names, "")
			}
		}
	}
	return names
}
