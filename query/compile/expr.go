package compile

import (
	"strings"

	"github.com/shipq/typedsql/query"
)

// writeExpr writes e in a context that needs no parentheses: a clause
// body, a function argument or a list element.
func (c *Compiler) writeExpr(b *strings.Builder, e query.Expr) error {
	return c.writeChild(b, e, opInfo{prec: precTop}, false)
}

// writeChild writes e as an operand of parent, adding parentheses only
// when leaving them out would change how the backend parses it.
func (c *Compiler) writeChild(b *strings.Builder, e query.Expr, parent opInfo, right bool) error {
	e, err := c.lower(e)
	if err != nil {
		return err
	}
	info := c.infoOf(e)
	uniform := !right || c.uniformSpine(e, info)
	if !needsParens(parent, info, right, uniform) {
		return c.writeNode(b, e, info)
	}
	b.WriteString("(")
	if err := c.writeNode(b, e, info); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

func (c *Compiler) writeNode(b *strings.Builder, e query.Expr, info opInfo) error {
	switch x := e.(type) {
	case query.LiteralExpr:
		c.placeholder(b, x.Value, "")
		return nil

	case query.ParamExpr:
		if x.Name == "" {
			return c.fail(ErrCodeInvalidIdentifier, "parameter name cannot be empty")
		}
		c.placeholder(b, nil, x.Name)
		return nil

	case query.ColumnExpr:
		return c.writeColumn(b, x)

	case query.BinaryExpr:
		return c.writeBinary(b, x, info)

	case query.UnaryExpr:
		switch x.Op {
		case query.OpNot:
			b.WriteString("NOT ")
			return c.writeChild(b, x.Expr, info, true)
		case query.OpNeg:
			b.WriteString("-")
			return c.writeChild(b, x.Expr, info, true)
		case query.OpIsNull, query.OpIsNotNull:
			if err := c.writeChild(b, x.Expr, info, false); err != nil {
				return err
			}
			b.WriteString(" ")
			b.WriteString(string(x.Op))
			return nil
		default:
			return c.fail(ErrCodeUnknownNode, "unknown unary operator %q", x.Op)
		}

	case query.BetweenExpr:
		if err := c.writeChild(b, x.Expr, info, false); err != nil {
			return err
		}
		if x.Negated {
			b.WriteString(" NOT BETWEEN ")
		} else {
			b.WriteString(" BETWEEN ")
		}
		if err := c.writeChild(b, x.Low, info, true); err != nil {
			return err
		}
		b.WriteString(" AND ")
		return c.writeChild(b, x.High, info, true)

	case query.ILikeExpr:
		return c.dialect.WriteILIKE(b, x.Left, x.Right, x.Negated, func(operand query.Expr) error {
			return c.writeChild(b, operand, compareInfo, true)
		})

	case query.FuncExpr:
		if !funcNameRegex.MatchString(x.Name) {
			return c.fail(ErrCodeInvalidIdentifier, "invalid function name %q", x.Name)
		}
		b.WriteString(c.dialect.FuncName(x.Name))
		b.WriteString("(")
		if err := c.writeList(b, x.Args); err != nil {
			return err
		}
		b.WriteString(")")
		return nil

	case query.NowExpr:
		b.WriteString(c.dialect.NowFunc())
		return nil

	case query.AggregateExpr:
		return c.writeAggregate(b, x)

	case query.CaseExpr:
		return c.writeCase(b, x)

	case query.RawExpr:
		b.WriteString(x.SQL)
		return nil

	case query.CompositeExpr:
		if len(x.Items) == 0 {
			return c.fail(ErrCodeCompositeArity, "row value has no columns")
		}
		b.WriteString("(")
		if err := c.writeList(b, x.Items); err != nil {
			return err
		}
		b.WriteString(")")
		return nil

	case query.ListExpr:
		if len(x.Values) == 0 {
			return c.fail(ErrCodeEmptyList, "IN list cannot be empty")
		}
		b.WriteString("(")
		if err := c.writeList(b, x.Values); err != nil {
			return err
		}
		b.WriteString(")")
		return nil

	case query.SubqueryExpr:
		return c.writeSubquery(b, x.Query)

	case query.ExistsExpr:
		if x.Negated {
			b.WriteString("NOT EXISTS ")
		} else {
			b.WriteString("EXISTS ")
		}
		return c.writeSubquery(b, x.Query)

	case nil:
		return c.fail(ErrCodeUnknownNode, "missing expression")

	default:
		return c.fail(ErrCodeUnknownNode, "unknown expression %T", e)
	}
}

func (c *Compiler) writeBinary(b *strings.Builder, x query.BinaryExpr, info opInfo) error {
	if _, ok := binaryInfo[x.Op]; !ok {
		return c.fail(ErrCodeUnknownNode, "unknown binary operator %q", x.Op)
	}

	if x.Op == query.OpConcat {
		if c.dialect.ConcatOperator() == "" {
			return c.writeConcatCall(b, x)
		}
		if err := c.writeChild(b, x.Left, info, false); err != nil {
			return err
		}
		b.WriteString(" ")
		b.WriteString(c.dialect.ConcatOperator())
		b.WriteString(" ")
		return c.writeChild(b, x.Right, info, true)
	}

	if err := c.writeChild(b, x.Left, info, false); err != nil {
		return err
	}
	b.WriteString(" ")
	b.WriteString(string(x.Op))
	b.WriteString(" ")

	if x.Op == query.OpIn || x.Op == query.OpNotIn {
		switch x.Right.(type) {
		case query.ListExpr, query.SubqueryExpr:
			return c.writeNode(b, x.Right, primaryInfo)
		default:
			b.WriteString("(")
			if err := c.writeExpr(b, x.Right); err != nil {
				return err
			}
			b.WriteString(")")
			return nil
		}
	}
	return c.writeChild(b, x.Right, info, true)
}

// writeConcatCall writes a chain of concatenations as one CONCAT(...) call.
func (c *Compiler) writeConcatCall(b *strings.Builder, x query.BinaryExpr) error {
	var parts []query.Expr
	var flatten func(e query.Expr)
	flatten = func(e query.Expr) {
		if be, ok := e.(query.BinaryExpr); ok && be.Op == query.OpConcat {
			flatten(be.Left)
			flatten(be.Right)
			return
		}
		parts = append(parts, e)
	}
	flatten(x)

	b.WriteString(c.dialect.FuncName("CONCAT"))
	b.WriteString("(")
	if err := c.writeList(b, parts); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

var aggregates = map[query.AggregateFunc]bool{
	query.AggCount: true,
	query.AggSum:   true,
	query.AggAvg:   true,
	query.AggMin:   true,
	query.AggMax:   true,
}

func (c *Compiler) writeAggregate(b *strings.Builder, x query.AggregateExpr) error {
	if !aggregates[x.Func] {
		return c.fail(ErrCodeUnknownNode, "unknown aggregate %q", x.Func)
	}
	b.WriteString(string(x.Func))
	b.WriteString("(")
	if x.Arg == nil {
		if x.Func != query.AggCount || x.Distinct {
			return c.fail(ErrCodeUnknownNode, "%s requires an argument", x.Func)
		}
		b.WriteString("*)")
		return nil
	}
	if x.Distinct {
		b.WriteString("DISTINCT ")
	}
	if err := c.writeExpr(b, x.Arg); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

func (c *Compiler) writeCase(b *strings.Builder, x query.CaseExpr) error {
	if len(x.Whens) == 0 {
		return c.fail(ErrCodeInvalidCase, "CASE requires at least one WHEN")
	}
	b.WriteString("CASE")
	for _, w := range x.Whens {
		b.WriteString(" WHEN ")
		if err := c.writeExpr(b, w.Cond); err != nil {
			return err
		}
		b.WriteString(" THEN ")
		if err := c.writeExpr(b, w.Result); err != nil {
			return err
		}
	}
	if x.Else != nil {
		b.WriteString(" ELSE ")
		if err := c.writeExpr(b, x.Else); err != nil {
			return err
		}
	}
	b.WriteString(" END")
	return nil
}

// writeSubquery compiles a nested SELECT in a child of the current scope,
// so it can reference (correlate with) enclosing sources.
func (c *Compiler) writeSubquery(b *strings.Builder, q *query.Query) error {
	if q == nil {
		return c.fail(ErrCodeUnknownNode, "subquery is nil")
	}
	b.WriteString("(")
	if err := c.compileInto(q, b, c.state.scope); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

func (c *Compiler) writeList(b *strings.Builder, exprs []query.Expr) error {
	for i, e := range exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := c.writeExpr(b, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) writeColumn(b *strings.Builder, col query.ColumnExpr) error {
	if col.Source == nil {
		return c.fail(ErrCodeDanglingSource, "column %s has no source", col.Name)
	}
	if col.Source == c.state.bare {
		b.WriteString(c.dialect.QuoteIdentifier(col.Name))
		return nil
	}
	if !c.state.scope.resolves(col.Source) {
		return c.fail(ErrCodeDanglingSource, "column %s references a source that is not in scope", col.Name)
	}
	alias, _ := c.state.aliases.Lookup(col.Source)
	b.WriteString(c.dialect.QuoteIdentifier(alias))
	b.WriteString(".")
	b.WriteString(c.dialect.QuoteIdentifier(col.Name))
	return nil
}

func (c *Compiler) placeholder(b *strings.Builder, value any, name string) {
	c.state.Args = append(c.state.Args, value)
	c.state.Names = append(c.state.Names, name)
	b.WriteString(c.dialect.Placeholder(len(c.state.Args)))
}

// =============================================================================
// Row Value Lowering
// =============================================================================

// lower rewrites row-value forms the dialect does not evaluate natively
// into per-column predicates.
func (c *Compiler) lower(e query.Expr) (query.Expr, error) {
	rv := c.dialect.RowValues()

	switch x := e.(type) {
	case query.BinaryExpr:
		left, ok := x.Left.(query.CompositeExpr)
		if !ok {
			return e, nil
		}
		switch x.Op {
		case query.OpEq, query.OpNe:
			right, ok := x.Right.(query.CompositeExpr)
			if !ok {
				return e, nil
			}
			if err := c.checkArity(left, right); err != nil {
				return nil, err
			}
			if rv.Compare {
				return e, nil
			}
			return expandCompare(x.Op, left, right), nil

		case query.OpIn, query.OpNotIn:
			switch r := x.Right.(type) {
			case query.SubqueryExpr:
				if !rv.Compare {
					return nil, c.fail(ErrCodeUnsupported, "row value IN (subquery) is not supported")
				}
				return e, nil
			case query.ListExpr:
				for _, item := range r.Values {
					rc, ok := item.(query.CompositeExpr)
					if !ok {
						return nil, c.fail(ErrCodeCompositeArity, "row value compared with a scalar")
					}
					if err := c.checkArity(left, rc); err != nil {
						return nil, err
					}
				}
				if rv.In || len(r.Values) == 0 {
					return e, nil
				}
				var expanded query.Expr
				for _, item := range r.Values {
					eq := expandCompare(query.OpEq, left, item.(query.CompositeExpr))
					if expanded == nil {
						expanded = eq
					} else {
						expanded = query.BinaryExpr{Left: expanded, Op: query.OpOr, Right: eq}
					}
				}
				if x.Op == query.OpNotIn {
					return query.UnaryExpr{Op: query.OpNot, Expr: expanded}, nil
				}
				return expanded, nil
			}
		}

	case query.UnaryExpr:
		comp, ok := x.Expr.(query.CompositeExpr)
		if !ok || !x.Op.Postfix() || rv.NullTest {
			return e, nil
		}
		if len(comp.Items) == 0 {
			return nil, c.fail(ErrCodeCompositeArity, "row value has no columns")
		}
		var expanded query.Expr
		for _, item := range comp.Items {
			test := query.UnaryExpr{Op: x.Op, Expr: item}
			if expanded == nil {
				expanded = test
			} else {
				expanded = query.BinaryExpr{Left: expanded, Op: query.OpAnd, Right: test}
			}
		}
		return expanded, nil
	}
	return e, nil
}

func (c *Compiler) checkArity(l, r query.CompositeExpr) error {
	if len(l.Items) == 0 || len(l.Items) != len(r.Items) {
		return c.fail(ErrCodeCompositeArity, "row values have %d and %d columns", len(l.Items), len(r.Items))
	}
	return nil
}

// expandCompare turns (a, b) = (x, y) into a = x AND b = y, and
// (a, b) <> (x, y) into a <> x OR b <> y.
func expandCompare(op query.BinaryOp, l, r query.CompositeExpr) query.Expr {
	join := query.OpAnd
	if op == query.OpNe {
		join = query.OpOr
	}
	var out query.Expr
	for i := range l.Items {
		cmp := query.BinaryExpr{Left: l.Items[i], Op: op, Right: r.Items[i]}
		if out == nil {
			out = cmp
		} else {
			out = query.BinaryExpr{Left: out, Op: join, Right: cmp}
		}
	}
	return out
}
