package query

// =============================================================================
// INSERT
// =============================================================================

// InsertBuilder builds INSERT statements.
type InsertBuilder struct {
	q *Query
}

// InsertInto starts an INSERT into target.
func InsertInto(target *TableSource) *InsertBuilder {
	return &InsertBuilder{q: &Query{Kind: InsertQuery, From: target}}
}

// Values appends one VALUES row. Every row must assign the same columns in
// the same order.
func (b *InsertBuilder) Values(row ...Assignment) *InsertBuilder {
	q := b.q.clone()
	q.Rows = append(q.Rows, append([]Assignment(nil), row...))
	return &InsertBuilder{q: q}
}

// Returning appends items to the RETURNING list.
func (b *InsertBuilder) Returning(items ...Selection) *InsertBuilder {
	q := b.q.clone()
	q.Returning = appendItems(q.Returning, items)
	return &InsertBuilder{q: q}
}

// ReturningEntity returns every column of the inserted row.
func (b *InsertBuilder) ReturningEntity() *InsertBuilder {
	q := b.q.clone()
	q.Returning = appendEntity(q.Returning, q.From)
	return &InsertBuilder{q: q}
}

func (b *InsertBuilder) Query() *Query { return b.q.clone() }

func (b *InsertBuilder) Build() (*Query, error) { return build(b.q) }

// =============================================================================
// UPDATE
// =============================================================================

// UpdateBuilder builds UPDATE statements.
type UpdateBuilder struct {
	q *Query
}

// Update starts an UPDATE of target. The target must be a single table;
// passing a join is reported by Build.
func Update(target Source) *UpdateBuilder {
	return &UpdateBuilder{q: &Query{Kind: UpdateQuery, From: target}}
}

// Set appends assignments.
func (b *UpdateBuilder) Set(assignments ...Assignment) *UpdateBuilder {
	q := b.q.clone()
	q.Set = append(q.Set, assignments...)
	return &UpdateBuilder{q: q}
}

// Where conjoins cond with any existing filter.
func (b *UpdateBuilder) Where(cond Cond) *UpdateBuilder {
	q := b.q.clone()
	q.Where = conjoin(q.Where, cond.Expr())
	return &UpdateBuilder{q: q}
}

func (b *UpdateBuilder) Returning(items ...Selection) *UpdateBuilder {
	q := b.q.clone()
	q.Returning = appendItems(q.Returning, items)
	return &UpdateBuilder{q: q}
}

func (b *UpdateBuilder) ReturningEntity() *UpdateBuilder {
	q := b.q.clone()
	q.Returning = appendEntity(q.Returning, q.From)
	return &UpdateBuilder{q: q}
}

func (b *UpdateBuilder) Query() *Query { return b.q.clone() }

func (b *UpdateBuilder) Build() (*Query, error) { return build(b.q) }

// =============================================================================
// DELETE
// =============================================================================

// DeleteBuilder builds DELETE statements.
type DeleteBuilder struct {
	q *Query
}

// Delete starts a DELETE from target.
func Delete(target Source) *DeleteBuilder {
	return &DeleteBuilder{q: &Query{Kind: DeleteQuery, From: target}}
}

func (b *DeleteBuilder) Where(cond Cond) *DeleteBuilder {
	q := b.q.clone()
	q.Where = conjoin(q.Where, cond.Expr())
	return &DeleteBuilder{q: q}
}

func (b *DeleteBuilder) Returning(items ...Selection) *DeleteBuilder {
	q := b.q.clone()
	q.Returning = appendItems(q.Returning, items)
	return &DeleteBuilder{q: q}
}

func (b *DeleteBuilder) ReturningEntity() *DeleteBuilder {
	q := b.q.clone()
	q.Returning = appendEntity(q.Returning, q.From)
	return &DeleteBuilder{q: q}
}

func (b *DeleteBuilder) Query() *Query { return b.q.clone() }

func (b *DeleteBuilder) Build() (*Query, error) { return build(b.q) }

// =============================================================================
// Set operations
// =============================================================================

// CompoundBuilder builds UNION / INTERSECT / EXCEPT statements.
type CompoundBuilder struct {
	q *Query
}

func compound(op SetOpKind, l, r QueryBuilder) *CompoundBuilder {
	return &CompoundBuilder{q: &Query{
		Kind:  SelectQuery,
		SetOp: &SetOperation{Left: l.Query(), Op: op, Right: r.Query()},
	}}
}

func UnionOf(l, r QueryBuilder) *CompoundBuilder     { return compound(Union, l, r) }
func UnionAllOf(l, r QueryBuilder) *CompoundBuilder  { return compound(UnionAll, l, r) }
func IntersectOf(l, r QueryBuilder) *CompoundBuilder { return compound(Intersect, l, r) }
func ExceptOf(l, r QueryBuilder) *CompoundBuilder    { return compound(Except, l, r) }

// Limit limits the combined result.
func (b *CompoundBuilder) Limit(n int64) *CompoundBuilder {
	q := b.q.clone()
	q.Limit = &n
	return &CompoundBuilder{q: q}
}

// Offset skips rows of the combined result.
func (b *CompoundBuilder) Offset(n int64) *CompoundBuilder {
	q := b.q.clone()
	q.Offset = &n
	return &CompoundBuilder{q: q}
}

func (b *CompoundBuilder) Query() *Query { return b.q.clone() }

func (b *CompoundBuilder) Build() (*Query, error) { return build(b.q) }

func build(q *Query) (*Query, error) {
	c := q.clone()
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func appendItems(dst []SelectItem, items []Selection) []SelectItem {
	for _, it := range items {
		dst = append(dst, it.toSelectItem())
	}
	return dst
}

func appendEntity(dst []SelectItem, target Source) []SelectItem {
	if t, ok := target.(*TableSource); ok {
		dst = append(dst, SelectItem{Entity: t})
	}
	return dst
}

var (
	_ QueryBuilder = (*InsertBuilder)(nil)
	_ QueryBuilder = (*UpdateBuilder)(nil)
	_ QueryBuilder = (*DeleteBuilder)(nil)
	_ QueryBuilder = (*CompoundBuilder)(nil)
)
