// Package crud derives the standard get/list/insert/update/delete
// statements for a schema table. Key and value columns bind as named
// parameters, one per column, named after the column.
package crud

import (
	"fmt"

	"github.com/shipq/typedsql/query"
	"github.com/shipq/typedsql/schema"
)

// DeletedAtColumn marks soft-deletable tables. Get and List skip rows
// where it is set, and SoftDelete sets it.
const DeletedAtColumn = "deleted_at"

// ScopeParam is the parameter name of the scope condition.
const ScopeParam = "scope"

// Options tune the generated statements.
type Options struct {
	// ScopeColumn, when set, adds "AND <column> = :scope" to every
	// statement that filters, for tenant-style row scoping.
	ScopeColumn string
}

// Builders produces CRUD query builders for one table.
type Builders struct {
	table *schema.Table
	pk    []schema.Column
	opts  Options
}

// For returns the builders for t. The table must be valid and have a
// primary key; a configured scope column must exist.
func For(t *schema.Table, opts Options) (*Builders, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	pk := t.PrimaryKey()
	if len(pk) == 0 {
		return nil, fmt.Errorf("table %s: CRUD needs a primary key", t.Name)
	}
	if opts.ScopeColumn != "" {
		if _, ok := t.Column(opts.ScopeColumn); !ok {
			return nil, fmt.Errorf("table %s: scope column %q does not exist", t.Name, opts.ScopeColumn)
		}
	}
	return &Builders{table: t, pk: pk, opts: opts}, nil
}

// Table returns the table the builders are for.
func (b *Builders) Table() *schema.Table { return b.table }

// SoftDeletes reports whether the table has a deleted_at column.
func (b *Builders) SoftDeletes() bool {
	_, ok := b.table.Column(DeletedAtColumn)
	return ok
}

func column(src *query.TableSource, c schema.Column) query.ColumnExpr {
	return query.ColumnExpr{Source: src, Name: c.Name, Nullable: c.Nullable}
}

func eqParam(src *query.TableSource, c schema.Column, param string) query.Cond {
	return query.Eq[any](query.Wrap[any](column(src, c)), query.Param[any](param))
}

// filter is the key condition plus scope and soft-delete filters.
func (b *Builders) filter(src *query.TableSource, byKey, live bool) query.Cond {
	var conds []query.Cond
	if byKey {
		for _, c := range b.pk {
			conds = append(conds, eqParam(src, c, c.Name))
		}
	}
	if b.opts.ScopeColumn != "" {
		c, _ := b.table.Column(b.opts.ScopeColumn)
		conds = append(conds, eqParam(src, c, ScopeParam))
	}
	if live && b.SoftDeletes() {
		c, _ := b.table.Column(DeletedAtColumn)
		conds = append(conds, query.IsNull[any](query.Wrap[any](column(src, c))))
	}
	return query.And(conds...)
}

// Get selects one row by primary key.
func (b *Builders) Get() *query.SelectBuilder {
	src := query.Table(b.table)
	return query.From(src).SelectEntity(src).Where(b.filter(src, true, true))
}

// List selects a page of rows ordered by primary key.
func (b *Builders) List(limit, offset int64) *query.SelectBuilder {
	src := query.Table(b.table)
	order := make([]query.OrderTerm, len(b.pk))
	for i, c := range b.pk {
		order[i] = query.OrderTerm{Expr: column(src, c)}
	}
	sb := query.From(src).SelectEntity(src).OrderBy(order...).Limit(limit)
	if offset > 0 {
		sb = sb.Offset(offset)
	}
	if cond := b.filter(src, false, true); cond.Expr() != nil {
		sb = sb.Where(cond)
	}
	return sb
}

// insertable returns the columns an INSERT supplies.
func (b *Builders) insertable() []schema.Column {
	var cols []schema.Column
	for _, c := range b.table.Columns {
		if c.Generated || c.Name == DeletedAtColumn {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// updatable returns the columns an UPDATE sets.
func (b *Builders) updatable() []schema.Column {
	var cols []schema.Column
	for _, c := range b.table.Columns {
		if c.PrimaryKey || c.Generated || c.Name == DeletedAtColumn || c.Name == b.opts.ScopeColumn {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// Insert adds one row from the non-generated columns. With returning set
// the inserted row is returned as an entity.
func (b *Builders) Insert(returning bool) (*query.InsertBuilder, error) {
	cols := b.insertable()
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s: no insertable columns", b.table.Name)
	}
	src := query.Table(b.table)
	row := make([]query.Assignment, len(cols))
	for i, c := range cols {
		row[i] = query.Assignment{Column: column(src, c), Value: query.ParamExpr{Name: c.Name}}
	}
	ib := query.InsertInto(src).Values(row...)
	if returning {
		ib = ib.ReturningEntity()
	}
	return ib, nil
}

// Update sets every non-key column of the row with the given key.
func (b *Builders) Update() (*query.UpdateBuilder, error) {
	cols := b.updatable()
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s: no updatable columns", b.table.Name)
	}
	src := query.Table(b.table)
	set := make([]query.Assignment, len(cols))
	for i, c := range cols {
		set[i] = query.Assignment{Column: column(src, c), Value: query.ParamExpr{Name: c.Name}}
	}
	return query.Update(src).Set(set...).Where(b.filter(src, true, true)), nil
}

// Delete removes the row with the given key.
func (b *Builders) Delete() *query.DeleteBuilder {
	src := query.Table(b.table)
	return query.Delete(src).Where(b.filter(src, true, false))
}

// SoftDelete stamps deleted_at on a live row with the given key.
func (b *Builders) SoftDelete() (*query.UpdateBuilder, error) {
	c, ok := b.table.Column(DeletedAtColumn)
	if !ok {
		return nil, fmt.Errorf("table %s: no %s column", b.table.Name, DeletedAtColumn)
	}
	src := query.Table(b.table)
	return query.Update(src).
		Set(query.Assignment{Column: column(src, c), Value: query.Now().Expr()}).
		Where(b.filter(src, true, true)), nil
}
