package query

import (
	"testing"
	"time"

	"github.com/shipq/typedsql/schema"
)

var (
	personTable = schema.NewTable("person",
		schema.Column{Name: "id", Type: schema.BigintType, PrimaryKey: true},
		schema.Column{Name: "name", Type: schema.StringType},
		schema.Column{Name: "age", Type: schema.IntegerType},
		schema.Column{Name: "parent_id", Type: schema.BigintType, Nullable: true},
		schema.Column{Name: "created_at", Type: schema.TimestampType},
	)
	petTable = schema.NewTable("pet",
		schema.Column{Name: "id", Type: schema.BigintType, PrimaryKey: true},
		schema.Column{Name: "owner_id", Type: schema.BigintType},
		schema.Column{Name: "name", Type: schema.StringType},
	)
)

func TestWhereAccumulates(t *testing.T) {
	p := Table(personTable)
	age := Col[int64](p, "age")
	name := Col[string](p, "name")

	b := From(p).Select(name).Where(age.Gt(18)).Where(name.Ne("x"))
	q, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	and, ok := q.Where.(BinaryExpr)
	if !ok || and.Op != OpAnd {
		t.Fatalf("expected AND at root, got %#v", q.Where)
	}
	if l, ok := and.Left.(BinaryExpr); !ok || l.Op != OpGt {
		t.Errorf("left conjunct should be the first filter, got %#v", and.Left)
	}
	if r, ok := and.Right.(BinaryExpr); !ok || r.Op != OpNe {
		t.Errorf("right conjunct should be the second filter, got %#v", and.Right)
	}
}

func TestBuilderIsPersistent(t *testing.T) {
	p := Table(personTable)
	age := Col[int64](p, "age")
	base := From(p).SelectEntity(p)

	adults := base.Where(age.Ge(18))
	minors := base.Where(age.Lt(18))

	if base.Query().Where != nil {
		t.Error("base builder was modified")
	}
	if adults.Query().Where.(BinaryExpr).Op != OpGe {
		t.Error("adults filter lost")
	}
	if minors.Query().Where.(BinaryExpr).Op != OpLt {
		t.Error("minors filter lost")
	}
}

func TestTableReturnsFreshIdentity(t *testing.T) {
	a := Table(personTable)
	b := Table(personTable)
	if a == b {
		t.Fatal("Table must return distinct sources")
	}
	if a.Name() != b.Name() {
		t.Error("both sources should reference the same table")
	}
}

func TestSelectEntityOptionalOnOuterJoin(t *testing.T) {
	p := Table(personTable)
	pet := Table(petTable)
	q, err := From(p).
		LeftJoin(pet).On(Col[int64](pet, "owner_id").EqCol(Col[int64](p, "id"))).
		SelectEntity(p).
		SelectEntity(pet).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if q.Projection[0].Optional {
		t.Error("left side of LEFT JOIN is not optional")
	}
	if !q.Projection[1].Optional {
		t.Error("right side of LEFT JOIN should be optional")
	}
	if got := q.Width(); got != len(personTable.Columns)+len(petTable.Columns) {
		t.Errorf("Width = %d", got)
	}
}

func TestNullableSources(t *testing.T) {
	a, b, c := Table(personTable), Table(personTable), Table(petTable)
	on := Col[int64](a, "id").EqCol(Col[int64](b, "id"))

	tests := []struct {
		name string
		src  Source
		want []*TableSource
	}{
		{"inner", JoinOf(InnerJoin, a, b, on), nil},
		{"left", JoinOf(LeftJoin, a, b, on), []*TableSource{b}},
		{"right", JoinOf(RightJoin, a, b, on), []*TableSource{a}},
		{"full", JoinOf(FullJoin, a, b, on), []*TableSource{a, b}},
		{"nested", JoinOf(LeftJoin, a, JoinOf(InnerJoin, b, c, on), on), []*TableSource{b, c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NullableSources(tt.src)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d nullable sources, want %d", len(got), len(tt.want))
			}
			for _, w := range tt.want {
				if !got[w] {
					t.Errorf("missing nullable source %p", w)
				}
			}
		})
	}
}

func TestSourcesIncludesNestedQueries(t *testing.T) {
	outer := Table(personTable)
	inner := Table(personTable)
	pet := Table(petTable)

	sub := From(inner).Select(Col[int64](inner, "id")).Where(Col[int64](inner, "parent_id").EqCol(Col[int64](outer, "id")))
	q := From(outer).
		Join(pet).On(Col[int64](pet, "owner_id").EqCol(Col[int64](outer, "id"))).
		Select(Col[string](outer, "name")).
		Where(Exists(sub)).
		Query()

	got := Sources(q)
	want := []Source{outer, pet, inner}
	if len(got) != len(want) {
		t.Fatalf("got %d sources, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("source %d: got %p, want %p", i, got[i], want[i])
		}
	}
}

func TestCollectParams(t *testing.T) {
	p := Table(personTable)
	q := From(p).
		Select(Col[string](p, "name")).
		Where(Eq[int64](Col[int64](p, "id"), Param[int64]("id"))).
		Where(Eq[string](Col[string](p, "name"), Param[string]("name"))).
		Where(Eq[int64](Col[int64](p, "parent_id"), Param[int64]("id"))).
		Query()

	params := CollectParams(q)
	if len(params) != 2 {
		t.Fatalf("expected 2 distinct params, got %d", len(params))
	}
	if params[0].Name != "id" || params[0].GoType != "int64" || params[1].Name != "name" {
		t.Errorf("unexpected params %+v", params)
	}
}

func TestCaseKeepsBranchOrder(t *testing.T) {
	p := Table(personTable)
	age := Col[int64](p, "age")
	c := Case[string]().
		When(age.Lt(13), Val("child")).
		When(age.Lt(20), Val("teen")).
		Else(Val("adult"))

	ce := c.Expr().(CaseExpr)
	if len(ce.Whens) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(ce.Whens))
	}
	first := ce.Whens[0].Result.(LiteralExpr).Value
	second := ce.Whens[1].Result.(LiteralExpr).Value
	if first != "child" || second != "teen" {
		t.Errorf("branch order changed: %v, %v", first, second)
	}
	if ce.Else.(LiteralExpr).Value != "adult" {
		t.Error("else branch lost")
	}
}

func TestColumnNullability(t *testing.T) {
	p := Table(personTable)
	if Col[int64](p, "id").Nullable() {
		t.Error("id is not nullable")
	}
	if !Col[int64](p, "parent_id").Nullable() {
		t.Error("parent_id is nullable")
	}
	if Col[time.Time](p, "created_at").Expr().(ColumnExpr).GoType != "time.Time" {
		t.Error("GoType tag not recorded")
	}
}

func TestAndSkipsEmpty(t *testing.T) {
	p := Table(personTable)
	c := And(Cond{}, Col[int64](p, "id").Eq(1), Cond{})
	if _, ok := c.Expr().(BinaryExpr); !ok {
		t.Fatalf("expected single comparison, got %#v", c.Expr())
	}
	if And().Expr() != nil {
		t.Error("And() should be empty")
	}

	q, err := From(p).Select(Col[int64](p, "id")).Where(And()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if q.Where != nil {
		t.Error("empty condition should not create a filter")
	}
}

func TestOutputNames(t *testing.T) {
	p := Table(personTable)
	q := From(p).
		Select(Col[int64](p, "id"), Count().As("n"), Val(int64(1))).
		Query()
	got := q.OutputNames()
	want := []string{"id", "n", ""}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d = %q, want %q", i, got[i], want[i])
		}
	}
}
