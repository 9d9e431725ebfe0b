package query

// Expr is the base interface for all expression nodes.
// The set of implementations is closed; the renderer switches over them.
type Expr interface {
	exprNode()
}

// LiteralExpr is a Go value. It is always rendered as a placeholder and its
// value appended to the statement arguments.
type LiteralExpr struct {
	Value any
}

func (LiteralExpr) exprNode() {}

// ParamExpr is a named placeholder whose value is supplied after rendering.
type ParamExpr struct {
	Name   string
	GoType string
}

func (ParamExpr) exprNode() {}

// ColumnExpr references a column of one source. The alias it is qualified
// with is resolved from the source identity at render time.
type ColumnExpr struct {
	Source   Source
	Name     string
	GoType   string
	Nullable bool
}

func (ColumnExpr) exprNode() {}

// BinaryOp is an infix operator.
type BinaryOp string

const (
	OpAdd     BinaryOp = "+"
	OpSub     BinaryOp = "-"
	OpMul     BinaryOp = "*"
	OpDiv     BinaryOp = "/"
	OpMod     BinaryOp = "%"
	OpConcat  BinaryOp = "||"
	OpEq      BinaryOp = "="
	OpNe      BinaryOp = "<>"
	OpLt      BinaryOp = "<"
	OpLe      BinaryOp = "<="
	OpGt      BinaryOp = ">"
	OpGe      BinaryOp = ">="
	OpLike    BinaryOp = "LIKE"
	OpNotLike BinaryOp = "NOT LIKE"
	OpIn      BinaryOp = "IN"
	OpNotIn   BinaryOp = "NOT IN"
	OpAnd     BinaryOp = "AND"
	OpOr      BinaryOp = "OR"
)

// BinaryExpr is Left Op Right.
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (BinaryExpr) exprNode() {}

// UnaryOp is a prefix or postfix operator.
type UnaryOp string

const (
	OpNot       UnaryOp = "NOT"
	OpNeg       UnaryOp = "-"
	OpIsNull    UnaryOp = "IS NULL"
	OpIsNotNull UnaryOp = "IS NOT NULL"
)

// Postfix reports whether the operator is written after its operand.
func (op UnaryOp) Postfix() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// UnaryExpr applies Op to Expr.
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
}

func (UnaryExpr) exprNode() {}

// BetweenExpr is Expr [NOT] BETWEEN Low AND High.
type BetweenExpr struct {
	Expr    Expr
	Low     Expr
	High    Expr
	Negated bool
}

func (BetweenExpr) exprNode() {}

// ILikeExpr is a case-insensitive pattern match. Dialects without a native
// operator rewrite it.
type ILikeExpr struct {
	Left    Expr
	Right   Expr
	Negated bool
}

func (ILikeExpr) exprNode() {}

// FuncExpr is a function call. Dialects may substitute the name.
type FuncExpr struct {
	Name string
	Args []Expr
}

func (FuncExpr) exprNode() {}

// NowExpr is the current timestamp, spelled by the dialect.
type NowExpr struct{}

func (NowExpr) exprNode() {}

// AggregateFunc names an aggregate.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// AggregateExpr is an aggregate call. A nil Arg renders as COUNT(*).
type AggregateExpr struct {
	Func     AggregateFunc
	Arg      Expr
	Distinct bool
}

func (AggregateExpr) exprNode() {}

// When is one CASE branch.
type When struct {
	Cond   Expr
	Result Expr
}

// CaseExpr is a searched CASE. Branches are evaluated in order and the
// first match wins, so Whens is rendered exactly as stored.
type CaseExpr struct {
	Whens []When
	Else  Expr
}

func (CaseExpr) exprNode() {}

// RawExpr is caller-supplied SQL text emitted verbatim.
// It is never escaped or parameterized.
type RawExpr struct {
	SQL string
}

func (RawExpr) exprNode() {}

// CompositeExpr is a row value such as (a, b), used for multi-column keys.
type CompositeExpr struct {
	Items []Expr
}

func (CompositeExpr) exprNode() {}

// ListExpr is the right-hand side of IN (...).
type ListExpr struct {
	Values []Expr
}

func (ListExpr) exprNode() {}

// SubqueryExpr is a SELECT used as a value or as an IN operand.
type SubqueryExpr struct {
	Query *Query
}

func (SubqueryExpr) exprNode() {}

// ExistsExpr is [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Query   *Query
	Negated bool
}

func (ExistsExpr) exprNode() {}

// Compile-time checks that all expression types implement Expr.
var (
	_ Expr = LiteralExpr{}
	_ Expr = ParamExpr{}
	_ Expr = ColumnExpr{}
	_ Expr = BinaryExpr{}
	_ Expr = UnaryExpr{}
	_ Expr = BetweenExpr{}
	_ Expr = ILikeExpr{}
	_ Expr = FuncExpr{}
	_ Expr = NowExpr{}
	_ Expr = AggregateExpr{}
	_ Expr = CaseExpr{}
	_ Expr = RawExpr{}
	_ Expr = CompositeExpr{}
	_ Expr = ListExpr{}
	_ Expr = SubqueryExpr{}
	_ Expr = ExistsExpr{}
)
