package query

// Validate checks a statement against the construction rules. Builders call
// it from Build; it is exported for callers that assemble IR by hand.
func Validate(q *Query) error {
	if q == nil {
		return constructionErr(ErrCodeNilQuery, "query is nil")
	}
	if q.SetOp != nil {
		return validateSetOp(q)
	}

	if err := validateLimits(q); err != nil {
		return err
	}

	switch q.Kind {
	case SelectQuery:
		if len(q.Projection) == 0 {
			return constructionErr(ErrCodeEmptyProjection, "SELECT requires at least one projection")
		}
		if err := validateFrom(q.From); err != nil {
			return err
		}
	case InsertQuery:
		if err := validateInsert(q); err != nil {
			return err
		}
	case UpdateQuery:
		if err := validateUpdate(q); err != nil {
			return err
		}
	case DeleteQuery:
		if _, err := mutationTarget(q); err != nil {
			return err
		}
		if len(q.Projection) > 0 {
			return constructionErr(ErrCodeMisplacedClause, "DELETE cannot carry a projection; use RETURNING")
		}
	default:
		return constructionErr(ErrCodeInvalidTarget, "unknown query kind %q", q.Kind)
	}

	return validateExprs(q)
}

func validateLimits(q *Query) error {
	if q.Limit != nil && *q.Limit < 0 {
		return constructionErr(ErrCodeNegativeLimit, "LIMIT must be non-negative, got %d", *q.Limit)
	}
	if q.Offset != nil && *q.Offset < 0 {
		return constructionErr(ErrCodeNegativeLimit, "OFFSET must be non-negative, got %d", *q.Offset)
	}
	if q.Kind != SelectQuery && (q.Limit != nil || q.Offset != nil) {
		return constructionErr(ErrCodeMisplacedClause, "LIMIT/OFFSET apply only to SELECT")
	}
	return nil
}

func validateSetOp(q *Query) error {
	op := q.SetOp
	if op.Left == nil || op.Right == nil {
		return constructionErr(ErrCodeNilQuery, "%s requires two queries", op.Op)
	}
	for _, side := range []*Query{op.Left, op.Right} {
		if side.Kind != SelectQuery {
			return constructionErr(ErrCodeInvalidTarget, "%s members must be SELECT, got %s", op.Op, side.Kind)
		}
		if err := Validate(side); err != nil {
			return err
		}
	}
	if l, r := op.Left.Width(), op.Right.Width(); l != r {
		return constructionErr(ErrCodeSetOpArity, "%s members have %d and %d columns", op.Op, l, r)
	}
	return validateLimits(q)
}

func validateFrom(src Source) error {
	switch s := src.(type) {
	case *DerivedSource:
		if s.Query == nil {
			return constructionErr(ErrCodeNilQuery, "derived table has no query")
		}
		if s.Query.Kind != SelectQuery {
			return constructionErr(ErrCodeInvalidTarget, "derived table must be a SELECT")
		}
		return Validate(s.Query)
	case *JoinSource:
		if err := validateFrom(s.Left); err != nil {
			return err
		}
		if err := validateFrom(s.Right); err != nil {
			return err
		}
		if s.Kind != CrossJoin && s.On == nil {
			return constructionErr(ErrCodeInvalidTarget, "%s JOIN requires an ON condition", s.Kind)
		}
	case *TableSource:
		if s.Table == nil {
			return constructionErr(ErrCodeInvalidTarget, "table source has no table")
		}
	}
	return nil
}

func mutationTarget(q *Query) (*TableSource, error) {
	switch t := q.From.(type) {
	case *TableSource:
		if t.Table == nil {
			return nil, constructionErr(ErrCodeInvalidTarget, "%s target has no table", q.Kind)
		}
		return t, nil
	case *JoinSource:
		return nil, constructionErr(ErrCodeJoinTarget, "%s target cannot be a join", q.Kind)
	case nil:
		return nil, constructionErr(ErrCodeInvalidTarget, "%s requires a target table", q.Kind)
	default:
		return nil, constructionErr(ErrCodeInvalidTarget, "%s target must be a table", q.Kind)
	}
}

func validateInsert(q *Query) error {
	target, err := mutationTarget(q)
	if err != nil {
		return err
	}
	if len(q.Rows) == 0 || len(q.Rows[0]) == 0 {
		return constructionErr(ErrCodeNoAssignments, "INSERT requires at least one value")
	}
	first := q.Rows[0]
	for i, row := range q.Rows {
		if len(row) != len(first) {
			return constructionErr(ErrCodeRaggedRows, "row %d has %d values, want %d", i, len(row), len(first))
		}
		for j, a := range row {
			if a.Column.Name != first[j].Column.Name {
				return constructionErr(ErrCodeRaggedRows, "row %d assigns %s at position %d, want %s",
					i, a.Column.Name, j, first[j].Column.Name)
			}
			if err := validateAssignment(target, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateUpdate(q *Query) error {
	target, err := mutationTarget(q)
	if err != nil {
		return err
	}
	if len(q.Set) == 0 {
		return constructionErr(ErrCodeNoAssignments, "UPDATE requires at least one assignment")
	}
	if len(q.Projection) > 0 {
		return constructionErr(ErrCodeMisplacedClause, "UPDATE cannot carry a projection; use RETURNING")
	}
	for _, a := range q.Set {
		if err := validateAssignment(target, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssignment(target *TableSource, a Assignment) error {
	if a.Column.Source != Source(target) {
		return &ConstructionError{
			Code:    ErrCodeForeignColumn,
			Message: "assigned column does not belong to the target",
			Table:   target.Name(),
			Column:  a.Column.Name,
		}
	}
	if lit, ok := a.Value.(LiteralExpr); ok && lit.Value == nil && !a.Column.Nullable {
		return &ConstructionError{
			Code:    ErrCodeNullViolation,
			Message: "NULL assigned to a non-nullable column",
			Table:   target.Name(),
			Column:  a.Column.Name,
		}
	}
	return nil
}

// validateExprs checks column references and nested queries.
func validateExprs(q *Query) error {
	var err error
	check := func(e Expr) bool {
		if err != nil {
			return false
		}
		switch x := e.(type) {
		case ColumnExpr:
			err = validateColumn(x)
		case CaseExpr:
			if len(x.Whens) == 0 {
				err = constructionErr(ErrCodeInvalidCase, "CASE requires at least one WHEN")
			}
		case SubqueryExpr:
			err = Validate(x.Query)
			return false
		case ExistsExpr:
			err = Validate(x.Query)
			return false
		}
		return err == nil
	}

	shallow := *q
	if _, ok := q.From.(*DerivedSource); ok {
		shallow.From = nil
	}
	if j, ok := q.From.(*JoinSource); ok {
		fromJoinConditions(j, func(e Expr) { WalkExpr(e, check) })
		shallow.From = nil
	}
	for _, a := range q.Set {
		check(a.Column)
	}
	for _, row := range q.Rows {
		for _, a := range row {
			check(a.Column)
		}
	}
	WalkQuery(&shallow, check)
	return err
}

func validateColumn(c ColumnExpr) error {
	switch src := c.Source.(type) {
	case *TableSource:
		if src.Table == nil {
			return constructionErr(ErrCodeInvalidTarget, "column %s has no table", c.Name)
		}
		def, ok := src.Table.Column(c.Name)
		if !ok {
			return &ConstructionError{
				Code:    ErrCodeUnknownColumn,
				Message: "column is not declared by the entity",
				Table:   src.Name(),
				Column:  c.Name,
			}
		}
		if c.GoType != "" && !def.Type.Accepts(c.GoType) {
			return &ConstructionError{
				Code:    ErrCodeTypeMismatch,
				Message: "Go type " + c.GoType + " does not match SQL type " + string(def.Type),
				Table:   src.Name(),
				Column:  c.Name,
			}
		}
	case *DerivedSource:
		if src.Query == nil {
			return constructionErr(ErrCodeNilQuery, "derived table has no query")
		}
		for _, name := range src.Query.OutputNames() {
			if name == c.Name {
				return nil
			}
		}
		return constructionErr(ErrCodeUnknownColumn, "derived table does not produce column %s", c.Name)
	}
	return nil
}
