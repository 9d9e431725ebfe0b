package query

// QueryBuilder is implemented by all statement builders.
type QueryBuilder interface {
	// Query returns the statement IR without validating it.
	Query() *Query
	// Build validates the statement and returns its IR.
	Build() (*Query, error)
}

// SelectBuilder builds SELECT statements. Every method returns a new
// builder and leaves the receiver untouched, so a partially built query
// can be shared and extended independently.
type SelectBuilder struct {
	q *Query
}

// From starts a SELECT over src.
func From(src Source) *SelectBuilder {
	return &SelectBuilder{q: &Query{Kind: SelectQuery, From: src}}
}

// SelectOnly starts a SELECT with no FROM clause.
func SelectOnly(items ...Selection) *SelectBuilder {
	return (&SelectBuilder{q: &Query{Kind: SelectQuery}}).Select(items...)
}

func (b *SelectBuilder) with(fn func(q *Query)) *SelectBuilder {
	q := b.q.clone()
	fn(q)
	return &SelectBuilder{q: q}
}

// Select appends items to the projection.
func (b *SelectBuilder) Select(items ...Selection) *SelectBuilder {
	return b.with(func(q *Query) {
		for _, it := range items {
			q.Projection = append(q.Projection, it.toSelectItem())
		}
	})
}

// SelectEntity appends all declared columns of src, in declaration order.
func (b *SelectBuilder) SelectEntity(src *TableSource) *SelectBuilder {
	return b.with(func(q *Query) {
		q.Projection = append(q.Projection, SelectItem{Entity: src})
	})
}

// Distinct makes the SELECT DISTINCT.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	return b.with(func(q *Query) { q.Distinct = true })
}

// Where conjoins cond with any existing filter.
func (b *SelectBuilder) Where(cond Cond) *SelectBuilder {
	return b.with(func(q *Query) { q.Where = conjoin(q.Where, cond.Expr()) })
}

// Having conjoins cond with any existing HAVING predicate.
func (b *SelectBuilder) Having(cond Cond) *SelectBuilder {
	return b.with(func(q *Query) { q.Having = conjoin(q.Having, cond.Expr()) })
}

// GroupBy appends grouping keys.
func (b *SelectBuilder) GroupBy(exprs ...Expression) *SelectBuilder {
	return b.with(func(q *Query) {
		for _, e := range exprs {
			q.GroupBy = append(q.GroupBy, e.Expr())
		}
	})
}

// OrderBy appends ordering terms.
func (b *SelectBuilder) OrderBy(terms ...OrderTerm) *SelectBuilder {
	return b.with(func(q *Query) { q.OrderBy = append(q.OrderBy, terms...) })
}

// Limit sets LIMIT. Negative values are rejected by Build.
func (b *SelectBuilder) Limit(n int64) *SelectBuilder {
	return b.with(func(q *Query) { q.Limit = &n })
}

// Offset sets OFFSET. Negative values are rejected by Build.
func (b *SelectBuilder) Offset(n int64) *SelectBuilder {
	return b.with(func(q *Query) { q.Offset = &n })
}

// Join adds an INNER JOIN, completed by On.
func (b *SelectBuilder) Join(src Source) *JoinBuilder {
	return &JoinBuilder{parent: b, kind: InnerJoin, right: src}
}

// LeftJoin adds a LEFT JOIN, completed by On.
func (b *SelectBuilder) LeftJoin(src Source) *JoinBuilder {
	return &JoinBuilder{parent: b, kind: LeftJoin, right: src}
}

// RightJoin adds a RIGHT JOIN, completed by On.
func (b *SelectBuilder) RightJoin(src Source) *JoinBuilder {
	return &JoinBuilder{parent: b, kind: RightJoin, right: src}
}

// FullJoin adds a FULL JOIN, completed by On.
func (b *SelectBuilder) FullJoin(src Source) *JoinBuilder {
	return &JoinBuilder{parent: b, kind: FullJoin, right: src}
}

// CrossJoin adds a CROSS JOIN.
func (b *SelectBuilder) CrossJoin(src Source) *SelectBuilder {
	return b.with(func(q *Query) {
		q.From = &JoinSource{Kind: CrossJoin, Left: q.From, Right: src}
	})
}

// Query returns the IR with outer-join optionality marked on entity items.
func (b *SelectBuilder) Query() *Query {
	q := b.q.clone()
	markOptional(q)
	return q
}

// Build validates and returns the statement.
func (b *SelectBuilder) Build() (*Query, error) {
	q := b.Query()
	if err := Validate(q); err != nil {
		return nil, err
	}
	return q, nil
}

// JoinBuilder is a join awaiting its ON condition.
type JoinBuilder struct {
	parent *SelectBuilder
	kind   JoinKind
	right  Source
}

// On completes the join.
func (j *JoinBuilder) On(cond Cond) *SelectBuilder {
	return j.parent.with(func(q *Query) {
		q.From = &JoinSource{Kind: j.kind, Left: q.From, Right: j.right, On: cond.Expr()}
	})
}

// JoinOf builds a join tree directly, for nesting a join on the right-hand
// side of another join.
func JoinOf(kind JoinKind, left, right Source, on Cond) *JoinSource {
	return &JoinSource{Kind: kind, Left: left, Right: right, On: on.Expr()}
}

func conjoin(existing, next Expr) Expr {
	if next == nil {
		return existing
	}
	if existing == nil {
		return next
	}
	return BinaryExpr{Left: existing, Op: OpAnd, Right: next}
}

func markOptional(q *Query) {
	nullable := NullableSources(q.From)
	if len(nullable) == 0 {
		return
	}
	for i, it := range q.Projection {
		if it.Entity != nil && nullable[it.Entity] {
			q.Projection[i].Optional = true
		}
	}
}

var _ QueryBuilder = (*SelectBuilder)(nil)
