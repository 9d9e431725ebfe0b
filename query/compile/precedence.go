package compile

import "github.com/shipq/typedsql/query"

// Precedence classes, loosest first.
const (
	precTop = iota
	precOr
	precAnd
	precNot
	precCompare
	precConcat
	precAdditive
	precMultiplicative
	precUnaryMinus
	precPrimary
)

// opInfo describes how an operator node binds.
type opInfo struct {
	prec int
	// op identifies the operator for associativity checks.
	op string
	// assoc is true for fully associative operators: a op (b op c) is
	// a op b op c.
	assoc bool
	// nonAssoc marks operators that never chain without parentheses.
	nonAssoc bool
}

var binaryInfo = map[query.BinaryOp]opInfo{
	query.OpOr:      {prec: precOr, op: "OR", assoc: true},
	query.OpAnd:     {prec: precAnd, op: "AND", assoc: true},
	query.OpEq:      {prec: precCompare, op: "=", nonAssoc: true},
	query.OpNe:      {prec: precCompare, op: "<>", nonAssoc: true},
	query.OpLt:      {prec: precCompare, op: "<", nonAssoc: true},
	query.OpLe:      {prec: precCompare, op: "<=", nonAssoc: true},
	query.OpGt:      {prec: precCompare, op: ">", nonAssoc: true},
	query.OpGe:      {prec: precCompare, op: ">=", nonAssoc: true},
	query.OpLike:    {prec: precCompare, op: "LIKE", nonAssoc: true},
	query.OpNotLike: {prec: precCompare, op: "NOT LIKE", nonAssoc: true},
	query.OpIn:      {prec: precCompare, op: "IN", nonAssoc: true},
	query.OpNotIn:   {prec: precCompare, op: "NOT IN", nonAssoc: true},
	query.OpConcat:  {prec: precConcat, op: "||", assoc: true},
	query.OpAdd:     {prec: precAdditive, op: "+", assoc: true},
	query.OpSub:     {prec: precAdditive, op: "-"},
	query.OpMul:     {prec: precMultiplicative, op: "*", assoc: true},
	query.OpDiv:     {prec: precMultiplicative, op: "/"},
	query.OpMod:     {prec: precMultiplicative, op: "%"},
}

var (
	compareInfo = opInfo{prec: precCompare, op: "cmp", nonAssoc: true}
	notInfo     = opInfo{prec: precNot, op: "NOT"}
	negInfo     = opInfo{prec: precUnaryMinus, op: "neg"}
	primaryInfo = opInfo{prec: precPrimary}
	// Raw fragments are opaque, so they are bracketed under any operator.
	rawInfo = opInfo{prec: precPrimary, op: "raw"}
)

// infoOf classifies an expression after dialect lowering.
func (c *Compiler) infoOf(e query.Expr) opInfo {
	switch x := e.(type) {
	case query.BinaryExpr:
		if x.Op == query.OpConcat && c.dialect.ConcatOperator() == "" {
			return primaryInfo
		}
		if info, ok := binaryInfo[x.Op]; ok {
			return info
		}
		return primaryInfo
	case query.UnaryExpr:
		switch x.Op {
		case query.OpNot:
			return notInfo
		case query.OpNeg:
			return negInfo
		default:
			return compareInfo
		}
	case query.BetweenExpr, query.ILikeExpr:
		return compareInfo
	case query.ExistsExpr:
		if x.Negated {
			return notInfo
		}
		return primaryInfo
	case query.RawExpr:
		return rawInfo
	default:
		return primaryInfo
	}
}

// needsParens decides whether child must be parenthesized under parent.
// right is true when child is the right operand of an infix parent.
// uniform reports whether every operator on the child's left spine at the
// child's precedence is the child's own operator; only then does
// a op (b op c) flatten to a op b op c.
func needsParens(parent, child opInfo, right, uniform bool) bool {
	if parent.prec == precTop {
		return false
	}
	if child.op == "raw" {
		return true
	}
	// Backends disagree on where || sits relative to arithmetic, so under
	// concatenation only primaries and further concatenations go bare.
	if parent.op == "||" {
		return child.prec != precPrimary && child.op != "||"
	}
	if child.prec < parent.prec {
		return true
	}
	if child.prec > parent.prec {
		return false
	}
	if parent.nonAssoc {
		return true
	}
	if !right {
		return false
	}
	return !(parent.assoc && child.op == parent.op && uniform)
}

// uniformSpine walks the left operands of e while they bind at the same
// precedence and reports whether all of them use e's operator.
func (c *Compiler) uniformSpine(e query.Expr, info opInfo) bool {
	for {
		x, ok := e.(query.BinaryExpr)
		if !ok {
			return true
		}
		left := c.infoOf(x.Left)
		if left.prec != info.prec {
			return true
		}
		if left.op != info.op {
			return false
		}
		e = x.Left
	}
}
