package compile

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/shipq/typedsql/query"
)

// goldenStatements are rendered for every dialect and compared with the
// files under testdata/. Run with -update to regenerate them.
func goldenStatements() map[string]query.QueryBuilder {
	p := query.Table(personTable)
	pet := query.Table(petTable)
	id := query.Col[int64](p, "id")
	name := query.Col[string](p, "name")
	age := query.Col[int64](p, "age")
	parent := query.Col[int64](p, "parent_id")

	return map[string]query.QueryBuilder{
		"select_join": query.From(p).
			LeftJoin(pet).On(query.Col[int64](pet, "owner_id").EqCol(id)).
			Select(name, query.Col[string](pet, "name").As("pet_name")).
			Where(query.ILike(name, query.Val("a%"))).
			OrderBy(name.Asc()).
			Limit(5).
			Offset(10),

		"update": query.Update(p).
			Set(name.ToExpr(query.Concat(name, query.Val("!"))), age.ToExpr(query.Add[int64](age, query.Val[int64](1)))).
			Where(id.Eq(7)),

		"insert_multi": query.InsertInto(p).
			Values(name.To("a"), age.To(1)).
			Values(name.To("b"), age.To(2)),

		"composite_in": query.From(p).
			Select(id).
			Where(query.Tuple2[int64, int64](id, parent).In(
				query.Values2(int64(1), int64(2)),
				query.Values2(int64(3), int64(4)),
			)),
	}
}

func TestGoldenStatements(t *testing.T) {
	g := goldie.New(t)
	for name, b := range goldenStatements() {
		for _, d := range allDialects {
			t.Run(name+"_"+d.Name(), func(t *testing.T) {
				stmt := mustSQL(t, b, d)
				got := fmt.Sprintf("%s\n-- args: %v\n", stmt.SQL, stmt.Args)
				g.Assert(t, name+"_"+d.Name(), []byte(got))
			})
		}
	}
}
