package query

// Number is the set of Go types usable in arithmetic.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func binary[R any](l Expr, op BinaryOp, r Expr) Scalar[R] {
	return Scalar[R]{expr: BinaryExpr{Left: l, Op: op, Right: r}}
}

// =============================================================================
// Comparison
// =============================================================================

func Eq[T any](a, b Operand[T]) Cond { return binary[bool](a.Expr(), OpEq, b.Expr()) }
func Ne[T any](a, b Operand[T]) Cond { return binary[bool](a.Expr(), OpNe, b.Expr()) }
func Lt[T any](a, b Operand[T]) Cond { return binary[bool](a.Expr(), OpLt, b.Expr()) }
func Le[T any](a, b Operand[T]) Cond { return binary[bool](a.Expr(), OpLe, b.Expr()) }
func Gt[T any](a, b Operand[T]) Cond { return binary[bool](a.Expr(), OpGt, b.Expr()) }
func Ge[T any](a, b Operand[T]) Cond { return binary[bool](a.Expr(), OpGe, b.Expr()) }

// Between is a BETWEEN lo AND hi, inclusive on both ends.
func Between[T any](a, lo, hi Operand[T]) Cond {
	return Cond{expr: BetweenExpr{Expr: a.Expr(), Low: lo.Expr(), High: hi.Expr()}}
}

// NotBetween is a NOT BETWEEN lo AND hi.
func NotBetween[T any](a, lo, hi Operand[T]) Cond {
	return Cond{expr: BetweenExpr{Expr: a.Expr(), Low: lo.Expr(), High: hi.Expr(), Negated: true}}
}

func IsNull[T any](a Operand[T]) Cond {
	return Cond{expr: UnaryExpr{Op: OpIsNull, Expr: a.Expr()}}
}

func IsNotNull[T any](a Operand[T]) Cond {
	return Cond{expr: UnaryExpr{Op: OpIsNotNull, Expr: a.Expr()}}
}

// In tests membership in a list of values. An empty list is rejected when
// the query is rendered.
func In[T any](a Operand[T], values ...T) Cond {
	return binary[bool](a.Expr(), OpIn, literalList(values))
}

// NotIn is the negation of In.
func NotIn[T any](a Operand[T], values ...T) Cond {
	return binary[bool](a.Expr(), OpNotIn, literalList(values))
}

// InList tests membership in a list of expressions.
func InList[T any](a Operand[T], items ...Operand[T]) Cond {
	list := ListExpr{Values: make([]Expr, len(items))}
	for i, it := range items {
		list.Values[i] = it.Expr()
	}
	return binary[bool](a.Expr(), OpIn, list)
}

// InSubquery tests membership in the rows of a single-column SELECT.
func InSubquery[T any](a Operand[T], sub QueryBuilder) Cond {
	return binary[bool](a.Expr(), OpIn, SubqueryExpr{Query: sub.Query()})
}

// NotInSubquery is the negation of InSubquery.
func NotInSubquery[T any](a Operand[T], sub QueryBuilder) Cond {
	return binary[bool](a.Expr(), OpNotIn, SubqueryExpr{Query: sub.Query()})
}

func literalList[T any](values []T) ListExpr {
	list := ListExpr{Values: make([]Expr, len(values))}
	for i, v := range values {
		list.Values[i] = LiteralExpr{Value: v}
	}
	return list
}

// =============================================================================
// Pattern matching
// =============================================================================

func Like(a, pattern Operand[string]) Cond {
	return binary[bool](a.Expr(), OpLike, pattern.Expr())
}

func NotLike(a, pattern Operand[string]) Cond {
	return binary[bool](a.Expr(), OpNotLike, pattern.Expr())
}

// ILike matches case-insensitively.
func ILike(a, pattern Operand[string]) Cond {
	return Cond{expr: ILikeExpr{Left: a.Expr(), Right: pattern.Expr()}}
}

func NotILike(a, pattern Operand[string]) Cond {
	return Cond{expr: ILikeExpr{Left: a.Expr(), Right: pattern.Expr(), Negated: true}}
}

// =============================================================================
// Boolean
// =============================================================================

// And conjoins conditions left to right. Conditions with no node are
// skipped; And() with nothing left is the empty condition.
func And(conds ...Cond) Cond {
	return fold(OpAnd, conds)
}

// Or disjoins conditions left to right.
func Or(conds ...Cond) Cond {
	return fold(OpOr, conds)
}

func fold(op BinaryOp, conds []Cond) Cond {
	var result Expr
	for _, c := range conds {
		if c.expr == nil {
			continue
		}
		if result == nil {
			result = c.expr
			continue
		}
		result = BinaryExpr{Left: result, Op: op, Right: c.expr}
	}
	return Cond{expr: result}
}

func Not(c Cond) Cond {
	return Cond{expr: UnaryExpr{Op: OpNot, Expr: c.expr}}
}

// =============================================================================
// Arithmetic and strings
// =============================================================================

func Add[T Number](a, b Operand[T]) Scalar[T] { return binary[T](a.Expr(), OpAdd, b.Expr()) }
func Sub[T Number](a, b Operand[T]) Scalar[T] { return binary[T](a.Expr(), OpSub, b.Expr()) }
func Mul[T Number](a, b Operand[T]) Scalar[T] { return binary[T](a.Expr(), OpMul, b.Expr()) }
func Div[T Number](a, b Operand[T]) Scalar[T] { return binary[T](a.Expr(), OpDiv, b.Expr()) }
func Mod[T Number](a, b Operand[T]) Scalar[T] { return binary[T](a.Expr(), OpMod, b.Expr()) }

func Neg[T Number](a Operand[T]) Scalar[T] {
	return Scalar[T]{expr: UnaryExpr{Op: OpNeg, Expr: a.Expr()}}
}

// Concat joins strings. The dialect chooses between an operator and a
// function call.
func Concat(parts ...Operand[string]) Scalar[string] {
	if len(parts) == 0 {
		return Val("")
	}
	result := parts[0].Expr()
	for _, p := range parts[1:] {
		result = BinaryExpr{Left: result, Op: OpConcat, Right: p.Expr()}
	}
	return Scalar[string]{expr: result}
}

func Lower(a Operand[string]) Scalar[string] {
	return Scalar[string]{expr: FuncExpr{Name: "LOWER", Args: []Expr{a.Expr()}}}
}

func Upper(a Operand[string]) Scalar[string] {
	return Scalar[string]{expr: FuncExpr{Name: "UPPER", Args: []Expr{a.Expr()}}}
}

// Coalesce returns the first non-NULL argument.
func Coalesce[T any](first Operand[T], rest ...Operand[T]) Scalar[T] {
	args := []Expr{first.Expr()}
	for _, r := range rest {
		args = append(args, r.Expr())
	}
	return Scalar[T]{expr: FuncExpr{Name: "COALESCE", Args: args}}
}

// Func calls an arbitrary function. The result type is the caller's claim.
func Func[T any](name string, args ...Expression) Scalar[T] {
	f := FuncExpr{Name: name, Args: make([]Expr, len(args))}
	for i, a := range args {
		f.Args[i] = a.Expr()
	}
	return Scalar[T]{expr: f}
}

// =============================================================================
// Aggregates
// =============================================================================

// Count is COUNT(*).
func Count() Scalar[int64] {
	return Scalar[int64]{expr: AggregateExpr{Func: AggCount}}
}

// CountOf counts non-NULL values of e.
func CountOf(e Expression) Scalar[int64] {
	return Scalar[int64]{expr: AggregateExpr{Func: AggCount, Arg: e.Expr()}}
}

// CountDistinct counts distinct non-NULL values of e.
func CountDistinct(e Expression) Scalar[int64] {
	return Scalar[int64]{expr: AggregateExpr{Func: AggCount, Arg: e.Expr(), Distinct: true}}
}

func Sum[T Number](a Operand[T]) Scalar[T] {
	return Scalar[T]{expr: AggregateExpr{Func: AggSum, Arg: a.Expr()}}
}

func Avg[T Number](a Operand[T]) Scalar[float64] {
	return Scalar[float64]{expr: AggregateExpr{Func: AggAvg, Arg: a.Expr()}}
}

func Min[T any](a Operand[T]) Scalar[T] {
	return Scalar[T]{expr: AggregateExpr{Func: AggMin, Arg: a.Expr()}}
}

func Max[T any](a Operand[T]) Scalar[T] {
	return Scalar[T]{expr: AggregateExpr{Func: AggMax, Arg: a.Expr()}}
}

// =============================================================================
// Subqueries
// =============================================================================

// Subquery uses a single-column, single-row SELECT as a value.
func Subquery[T any](sub QueryBuilder) Scalar[T] {
	return Scalar[T]{expr: SubqueryExpr{Query: sub.Query()}}
}

func Exists(sub QueryBuilder) Cond {
	return Cond{expr: ExistsExpr{Query: sub.Query()}}
}

func NotExists(sub QueryBuilder) Cond {
	return Cond{expr: ExistsExpr{Query: sub.Query(), Negated: true}}
}
