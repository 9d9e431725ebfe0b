package proptest

import "github.com/shipq/typedsql/query"

// Exprs generates random well-typed expression trees over integer columns.
// Trees use arithmetic, comparisons, BETWEEN, IS NULL and the boolean
// connectives, which every dialect renders without lowering.
type Exprs struct {
	Columns []query.Column[int64]
}

// Int returns an integer expression of at most the given depth.
func (x Exprs) Int(g *Generator, depth int) query.Operand[int64] {
	if depth <= 0 || g.BoolWithProb(0.3) {
		if len(x.Columns) > 0 && g.Bool() {
			return x.Columns[g.Intn(len(x.Columns))]
		}
		return query.Val(g.Int64Range(0, 99))
	}
	l := x.Int(g, depth-1)
	switch g.Intn(6) {
	case 0:
		return query.Add[int64](l, x.Int(g, depth-1))
	case 1:
		return query.Sub[int64](l, x.Int(g, depth-1))
	case 2:
		return query.Mul[int64](l, x.Int(g, depth-1))
	case 3:
		return query.Div[int64](l, x.Int(g, depth-1))
	case 4:
		return query.Mod[int64](l, x.Int(g, depth-1))
	default:
		return query.Neg[int64](l)
	}
}

// Cond returns a boolean expression of at most the given depth.
func (x Exprs) Cond(g *Generator, depth int) query.Cond {
	if depth <= 0 || g.BoolWithProb(0.25) {
		return x.comparison(g, depth-1)
	}
	switch g.Intn(4) {
	case 0:
		return query.And(x.Cond(g, depth-1), x.Cond(g, depth-1))
	case 1:
		return query.Or(x.Cond(g, depth-1), x.Cond(g, depth-1))
	case 2:
		return query.Not(x.Cond(g, depth-1))
	default:
		return x.comparison(g, depth-1)
	}
}

func (x Exprs) comparison(g *Generator, depth int) query.Cond {
	if depth < 0 {
		depth = 0
	}
	l, r := x.Int(g, depth), x.Int(g, depth)
	switch g.Intn(8) {
	case 0:
		return query.Eq[int64](l, r)
	case 1:
		return query.Ne[int64](l, r)
	case 2:
		return query.Lt[int64](l, r)
	case 3:
		return query.Le[int64](l, r)
	case 4:
		return query.Gt[int64](l, r)
	case 5:
		return query.Ge[int64](l, r)
	case 6:
		return query.Between[int64](l, r, x.Int(g, depth))
	default:
		return query.IsNull[int64](l)
	}
}
