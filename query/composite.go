package query

// Row2 is a two-column row value, typically a composite key.
type Row2[A, B any] struct {
	a Operand[A]
	b Operand[B]
}

// Tuple2 groups two operands into a row value.
func Tuple2[A, B any](a Operand[A], b Operand[B]) Row2[A, B] {
	return Row2[A, B]{a: a, b: b}
}

// Values2 is a row value of two literals.
func Values2[A, B any](a A, b B) Row2[A, B] {
	return Row2[A, B]{a: Val(a), b: Val(b)}
}

// Expr returns the composite node.
func (r Row2[A, B]) Expr() Expr {
	return CompositeExpr{Items: []Expr{r.a.Expr(), r.b.Expr()}}
}

func (r Row2[A, B]) Eq(o Row2[A, B]) Cond { return binary[bool](r.Expr(), OpEq, o.Expr()) }
func (r Row2[A, B]) Ne(o Row2[A, B]) Cond { return binary[bool](r.Expr(), OpNe, o.Expr()) }

// In tests the row against a list of rows.
func (r Row2[A, B]) In(rows ...Row2[A, B]) Cond {
	list := ListExpr{Values: make([]Expr, len(rows))}
	for i, o := range rows {
		list.Values[i] = o.Expr()
	}
	return binary[bool](r.Expr(), OpIn, list)
}

// IsNull holds when every column is NULL.
func (r Row2[A, B]) IsNull() Cond {
	return Cond{expr: UnaryExpr{Op: OpIsNull, Expr: r.Expr()}}
}

// IsNotNull holds when no column is NULL.
func (r Row2[A, B]) IsNotNull() Cond {
	return Cond{expr: UnaryExpr{Op: OpIsNotNull, Expr: r.Expr()}}
}

// Row3 is a three-column row value.
type Row3[A, B, C any] struct {
	a Operand[A]
	b Operand[B]
	c Operand[C]
}

func Tuple3[A, B, C any](a Operand[A], b Operand[B], c Operand[C]) Row3[A, B, C] {
	return Row3[A, B, C]{a: a, b: b, c: c}
}

func Values3[A, B, C any](a A, b B, c C) Row3[A, B, C] {
	return Row3[A, B, C]{a: Val(a), b: Val(b), c: Val(c)}
}

func (r Row3[A, B, C]) Expr() Expr {
	return CompositeExpr{Items: []Expr{r.a.Expr(), r.b.Expr(), r.c.Expr()}}
}

func (r Row3[A, B, C]) Eq(o Row3[A, B, C]) Cond { return binary[bool](r.Expr(), OpEq, o.Expr()) }
func (r Row3[A, B, C]) Ne(o Row3[A, B, C]) Cond { return binary[bool](r.Expr(), OpNe, o.Expr()) }

func (r Row3[A, B, C]) In(rows ...Row3[A, B, C]) Cond {
	list := ListExpr{Values: make([]Expr, len(rows))}
	for i, o := range rows {
		list.Values[i] = o.Expr()
	}
	return binary[bool](r.Expr(), OpIn, list)
}

func (r Row3[A, B, C]) IsNull() Cond {
	return Cond{expr: UnaryExpr{Op: OpIsNull, Expr: r.Expr()}}
}

func (r Row3[A, B, C]) IsNotNull() Cond {
	return Cond{expr: UnaryExpr{Op: OpIsNotNull, Expr: r.Expr()}}
}
