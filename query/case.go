package query

// CaseBuilder builds a searched CASE expression of result type T.
type CaseBuilder[T any] struct {
	whens []When
}

// Case starts a CASE expression.
func Case[T any]() *CaseBuilder[T] {
	return &CaseBuilder[T]{}
}

// When appends a branch. Branches are tried in the order they are added.
func (b *CaseBuilder[T]) When(cond Cond, then Operand[T]) *CaseBuilder[T] {
	whens := append(append([]When(nil), b.whens...), When{Cond: cond.Expr(), Result: then.Expr()})
	return &CaseBuilder[T]{whens: whens}
}

// Else finishes the expression with a fallback result.
func (b *CaseBuilder[T]) Else(result Operand[T]) Scalar[T] {
	return Scalar[T]{expr: CaseExpr{Whens: b.whens, Else: result.Expr()}}
}

// End finishes the expression without ELSE; unmatched rows yield NULL.
func (b *CaseBuilder[T]) End() Scalar[T] {
	return Scalar[T]{expr: CaseExpr{Whens: b.whens}}
}
