package query

// ExprVisitor is called for each expression during a walk.
// Return false to skip the children of the current expression.
type ExprVisitor func(expr Expr) bool

// WalkExpr traverses an expression tree depth-first, descending into
// subqueries.
func WalkExpr(expr Expr, visit ExprVisitor) {
	if expr == nil {
		return
	}
	if !visit(expr) {
		return
	}

	switch e := expr.(type) {
	case BinaryExpr:
		WalkExpr(e.Left, visit)
		WalkExpr(e.Right, visit)
	case UnaryExpr:
		WalkExpr(e.Expr, visit)
	case BetweenExpr:
		WalkExpr(e.Expr, visit)
		WalkExpr(e.Low, visit)
		WalkExpr(e.High, visit)
	case ILikeExpr:
		WalkExpr(e.Left, visit)
		WalkExpr(e.Right, visit)
	case FuncExpr:
		for _, arg := range e.Args {
			WalkExpr(arg, visit)
		}
	case AggregateExpr:
		WalkExpr(e.Arg, visit)
	case CaseExpr:
		for _, w := range e.Whens {
			WalkExpr(w.Cond, visit)
			WalkExpr(w.Result, visit)
		}
		WalkExpr(e.Else, visit)
	case CompositeExpr:
		for _, it := range e.Items {
			WalkExpr(it, visit)
		}
	case ListExpr:
		for _, v := range e.Values {
			WalkExpr(v, visit)
		}
	case SubqueryExpr:
		WalkQuery(e.Query, visit)
	case ExistsExpr:
		WalkQuery(e.Query, visit)
	}
}

// WalkQuery traverses every expression of a statement in clause order,
// including join conditions, derived tables and set-operation members.
func WalkQuery(q *Query, visit ExprVisitor) {
	if q == nil {
		return
	}
	if q.SetOp != nil {
		WalkQuery(q.SetOp.Left, visit)
		WalkQuery(q.SetOp.Right, visit)
	}
	for _, it := range q.Projection {
		WalkExpr(it.Expr, visit)
	}
	walkSource(q.From, visit)
	for _, a := range q.Set {
		WalkExpr(a.Value, visit)
	}
	for _, row := range q.Rows {
		for _, a := range row {
			WalkExpr(a.Value, visit)
		}
	}
	WalkExpr(q.Where, visit)
	for _, g := range q.GroupBy {
		WalkExpr(g, visit)
	}
	WalkExpr(q.Having, visit)
	for _, o := range q.OrderBy {
		WalkExpr(o.Expr, visit)
	}
	for _, it := range q.Returning {
		WalkExpr(it.Expr, visit)
	}
}

func walkSource(src Source, visit ExprVisitor) {
	switch s := src.(type) {
	case *DerivedSource:
		WalkQuery(s.Query, visit)
	case *JoinSource:
		walkSource(s.Left, visit)
		walkSource(s.Right, visit)
		WalkExpr(s.On, visit)
	}
}

// CollectParams returns the distinct named parameters of a statement in
// first-seen order.
func CollectParams(q *Query) []ParamExpr {
	var params []ParamExpr
	seen := make(map[string]bool)
	WalkQuery(q, func(e Expr) bool {
		if p, ok := e.(ParamExpr); ok && !seen[p.Name] {
			seen[p.Name] = true
			params = append(params, p)
		}
		return true
	})
	return params
}

// Sources returns every table and derived source of a statement, nested
// queries included, depth-first in construction order. Each identity is
// listed once.
func Sources(q *Query) []Source {
	var out []Source
	seen := make(map[Source]bool)
	var fromQuery func(q *Query)
	var fromSource func(src Source)

	add := func(src Source) {
		if !seen[src] {
			seen[src] = true
			out = append(out, src)
		}
	}
	fromSource = func(src Source) {
		switch s := src.(type) {
		case *TableSource:
			add(s)
		case *DerivedSource:
			add(s)
			fromQuery(s.Query)
		case *JoinSource:
			fromSource(s.Left)
			fromSource(s.Right)
		}
	}
	fromExprs := func(q *Query) {
		shallow := *q
		shallow.From = nil
		shallow.SetOp = nil
		WalkQuery(&shallow, func(e Expr) bool {
			switch x := e.(type) {
			case SubqueryExpr:
				fromQuery(x.Query)
				return false
			case ExistsExpr:
				fromQuery(x.Query)
				return false
			}
			return true
		})
		if j, ok := q.From.(*JoinSource); ok {
			fromJoinConditions(j, func(e Expr) {
				WalkExpr(e, func(e Expr) bool {
					switch x := e.(type) {
					case SubqueryExpr:
						fromQuery(x.Query)
						return false
					case ExistsExpr:
						fromQuery(x.Query)
						return false
					}
					return true
				})
			})
		}
	}
	fromQuery = func(q *Query) {
		if q == nil {
			return
		}
		if q.SetOp != nil {
			fromQuery(q.SetOp.Left)
			fromQuery(q.SetOp.Right)
		}
		fromSource(q.From)
		fromExprs(q)
	}

	fromQuery(q)
	return out
}

func fromJoinConditions(j *JoinSource, fn func(Expr)) {
	if l, ok := j.Left.(*JoinSource); ok {
		fromJoinConditions(l, fn)
	}
	if r, ok := j.Right.(*JoinSource); ok {
		fromJoinConditions(r, fn)
	}
	if j.On != nil {
		fn(j.On)
	}
}

// NullableSources returns the table sources that sit on the nullable side
// of an outer join within src.
func NullableSources(src Source) map[*TableSource]bool {
	out := make(map[*TableSource]bool)
	var mark func(s Source)
	mark = func(s Source) {
		switch x := s.(type) {
		case *TableSource:
			out[x] = true
		case *JoinSource:
			mark(x.Left)
			mark(x.Right)
		}
	}
	var visit func(s Source)
	visit = func(s Source) {
		j, ok := s.(*JoinSource)
		if !ok {
			return
		}
		visit(j.Left)
		visit(j.Right)
		switch j.Kind {
		case LeftJoin:
			mark(j.Right)
		case RightJoin:
			mark(j.Left)
		case FullJoin:
			mark(j.Left)
			mark(j.Right)
		}
	}
	visit(src)
	return out
}
