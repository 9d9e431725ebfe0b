package query

import (
	"reflect"
	"time"

	"github.com/shipq/typedsql/schema"
)

// Expression is anything that carries an expression node.
type Expression interface {
	Expr() Expr
}

// Operand is an expression whose SQL value maps to the Go type T.
//
// T is a phantom tag checked by the Go compiler at every combinator call:
// Eq(ageColumn, Val("x")) does not compile. Nullability and agreement
// between T and the column's declared SQL type are checked when a query
// is built, so those two guarantees are runtime ones.
type Operand[T any] interface {
	Expression
	valueOf(T)
}

// Selection is anything that can appear in a projection list.
type Selection interface {
	toSelectItem() SelectItem
}

// Scalar is a typed expression.
type Scalar[T any] struct {
	expr Expr
}

// Cond is a boolean expression.
type Cond = Scalar[bool]

// Expr returns the underlying node.
func (s Scalar[T]) Expr() Expr { return s.expr }

func (Scalar[T]) valueOf(T) {}

func (s Scalar[T]) toSelectItem() SelectItem { return SelectItem{Expr: s.expr} }

// As names the expression in a projection.
func (s Scalar[T]) As(alias string) SelectItem { return SelectItem{Expr: s.expr, Alias: alias} }

// Asc orders ascending by the expression.
func (s Scalar[T]) Asc() OrderTerm { return OrderTerm{Expr: s.expr} }

// Desc orders descending by the expression.
func (s Scalar[T]) Desc() OrderTerm { return OrderTerm{Expr: s.expr, Desc: true} }

// Wrap tags an untyped node with T. The caller vouches for the type.
func Wrap[T any](e Expr) Scalar[T] { return Scalar[T]{expr: e} }

// Val is a literal bound as a parameter.
func Val[T any](v T) Scalar[T] { return Scalar[T]{expr: LiteralExpr{Value: v}} }

// Null is a NULL of type T bound as a parameter.
func Null[T any]() Scalar[T] { return Scalar[T]{expr: LiteralExpr{Value: nil}} }

// Param is a named placeholder bound after rendering.
func Param[T any](name string) Scalar[T] {
	return Scalar[T]{expr: ParamExpr{Name: name, GoType: typeName[T]()}}
}

// UnsafeRaw embeds sql verbatim. Nothing is escaped or parameterized; the
// caller is responsible for the text being safe to inject. Under any
// operator the fragment is rendered in parentheses.
func UnsafeRaw[T any](sql string) Scalar[T] { return Scalar[T]{expr: RawExpr{SQL: sql}} }

// Now is the database's current timestamp.
func Now() Scalar[time.Time] { return Scalar[time.Time]{expr: NowExpr{}} }

// Column is a typed reference to a column of one source.
type Column[T any] struct {
	col ColumnExpr
}

// Col references the named column of src. An unknown name or a T that does
// not match the declared SQL type is reported when the query is built.
func Col[T any](src *TableSource, name string) Column[T] {
	c := ColumnExpr{Source: src, Name: name, GoType: typeName[T]()}
	if src != nil && src.Table != nil {
		if def, ok := src.Table.Column(name); ok {
			c.Nullable = def.Nullable
		}
	}
	return Column[T]{col: c}
}

// DerivedCol references an output column of a derived table.
func DerivedCol[T any](src *DerivedSource, name string) Column[T] {
	c := ColumnExpr{Source: src, Name: name, GoType: typeName[T](), Nullable: true}
	if src != nil && src.Query != nil {
		for _, it := range src.Query.Projection {
			if ce, ok := it.Expr.(ColumnExpr); ok && it.Alias == "" && ce.Name == name {
				c.Nullable = ce.Nullable
			}
		}
	}
	return Column[T]{col: c}
}

// Expr returns the underlying node.
func (c Column[T]) Expr() Expr { return c.col }

func (Column[T]) valueOf(T) {}

func (c Column[T]) toSelectItem() SelectItem { return SelectItem{Expr: c.col} }

// Name returns the column name.
func (c Column[T]) Name() string { return c.col.Name }

// Source returns the source the column belongs to.
func (c Column[T]) Source() Source { return c.col.Source }

// Nullable reports whether the column is declared nullable.
func (c Column[T]) Nullable() bool { return c.col.Nullable }

// As names the column in a projection.
func (c Column[T]) As(alias string) SelectItem { return SelectItem{Expr: c.col, Alias: alias} }

func (c Column[T]) Eq(v T) Cond { return Eq[T](c, Val(v)) }
func (c Column[T]) Ne(v T) Cond { return Ne[T](c, Val(v)) }
func (c Column[T]) Lt(v T) Cond { return Lt[T](c, Val(v)) }
func (c Column[T]) Le(v T) Cond { return Le[T](c, Val(v)) }
func (c Column[T]) Gt(v T) Cond { return Gt[T](c, Val(v)) }
func (c Column[T]) Ge(v T) Cond { return Ge[T](c, Val(v)) }

// EqCol compares two columns of the same type, the usual join condition.
func (c Column[T]) EqCol(other Column[T]) Cond { return Eq[T](c, other) }

func (c Column[T]) In(vs ...T) Cond    { return In[T](c, vs...) }
func (c Column[T]) NotIn(vs ...T) Cond { return NotIn[T](c, vs...) }

func (c Column[T]) Between(lo, hi T) Cond { return Between[T](c, Val(lo), Val(hi)) }

func (c Column[T]) IsNull() Cond    { return IsNull[T](c) }
func (c Column[T]) IsNotNull() Cond { return IsNotNull[T](c) }

func (c Column[T]) Asc() OrderTerm  { return OrderTerm{Expr: c.col} }
func (c Column[T]) Desc() OrderTerm { return OrderTerm{Expr: c.col, Desc: true} }

// To assigns a value to the column.
func (c Column[T]) To(v T) Assignment { return Assignment{Column: c.col, Value: LiteralExpr{Value: v}} }

// ToExpr assigns an expression to the column.
func (c Column[T]) ToExpr(op Operand[T]) Assignment {
	return Assignment{Column: c.col, Value: op.Expr()}
}

// ToNull assigns NULL to the column.
func (c Column[T]) ToNull() Assignment {
	return Assignment{Column: c.col, Value: LiteralExpr{Value: nil}}
}

// Table returns a fresh reference to an entity. Every call yields a new
// identity, so joining a table to itself is Table(t) joined to Table(t).
func Table(t *schema.Table) *TableSource {
	return &TableSource{Table: t}
}

// Derived wraps a SELECT as a FROM item.
func Derived(b QueryBuilder) *DerivedSource {
	return &DerivedSource{Query: b.Query()}
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

var (
	_ Operand[int64]  = Column[int64]{}
	_ Operand[string] = Scalar[string]{}
	_ Selection       = Column[int64]{}
	_ Selection       = Scalar[int64]{}
	_ Selection       = SelectItem{}
)
