package crud

import (
	"bytes"
	"database/sql"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/shipq/typedsql/query/compile"
	"github.com/shipq/typedsql/query/decode"
	"github.com/shipq/typedsql/runner"
	"github.com/shipq/typedsql/schema"
)

var personTable = schema.NewTable("person",
	schema.Column{Name: "id", Type: schema.BigintType, PrimaryKey: true, Generated: true},
	schema.Column{Name: "name", Type: schema.StringType},
	schema.Column{Name: "age", Type: schema.IntegerType, Nullable: true},
	schema.Column{Name: "deleted_at", Type: schema.TimestampType, Nullable: true},
)

func dump(s Set) []byte {
	var buf bytes.Buffer
	for _, n := range s.Statements() {
		fmt.Fprintf(&buf, "-- %s %v\n%s\n", n.Op, n.Statement.Names, n.Statement.SQL)
	}
	return buf.Bytes()
}

func TestGenerateSQLGolden(t *testing.T) {
	g := goldie.New(t)
	for _, d := range []compile.Dialect{compile.Postgres, compile.MySQL, compile.SQLite} {
		t.Run(d.Name(), func(t *testing.T) {
			set, err := GenerateSQL(personTable, d)
			require.NoError(t, err)
			assert.Equal(t, "person", set.Table)
			g.Assert(t, "person_"+d.Name(), dump(set))
		})
	}
}

func TestGenerateSQLScope(t *testing.T) {
	doc := schema.NewTable("doc",
		schema.Column{Name: "id", Type: schema.BigintType, PrimaryKey: true},
		schema.Column{Name: "org_id", Type: schema.BigintType},
		schema.Column{Name: "title", Type: schema.StringType},
	)
	set, err := GenerateSQLWith(doc, compile.Postgres, Options{ScopeColumn: "org_id"}, 10)
	require.NoError(t, err)

	assert.Equal(t, `SELECT "doc"."id", "doc"."org_id", "doc"."title" FROM "doc" WHERE "doc"."id" = $1 AND "doc"."org_id" = $2`, set.Get.SQL)
	assert.Equal(t, []string{"id", ScopeParam}, set.Get.Names)
	assert.Equal(t, `SELECT "doc"."id", "doc"."org_id", "doc"."title" FROM "doc" WHERE "doc"."org_id" = $1 ORDER BY "doc"."id" ASC LIMIT 10`, set.List.SQL)
	// the scope column is written on insert but never updated
	assert.Equal(t, []string{"id", "org_id", "title"}, set.Insert.Names)
	assert.Equal(t, `UPDATE "doc" SET "title" = $1 WHERE "doc"."id" = $2 AND "doc"."org_id" = $3`, set.Update.SQL)
	assert.Empty(t, set.SoftDelete.SQL)
}

func TestGenerateSQLCompositeKey(t *testing.T) {
	tag := schema.NewTable("person_tag",
		schema.Column{Name: "person_id", Type: schema.BigintType, PrimaryKey: true},
		schema.Column{Name: "tag", Type: schema.StringType, PrimaryKey: true},
	)
	set, err := GenerateSQL(tag, compile.SQLite)
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM "person_tag" WHERE "person_tag"."person_id" = ? AND "person_tag"."tag" = ?`, set.Delete.SQL)
	assert.Equal(t, `SELECT "person_tag"."person_id", "person_tag"."tag" FROM "person_tag" ORDER BY "person_tag"."person_id" ASC, "person_tag"."tag" ASC LIMIT 50`, set.List.SQL)
	// every column is part of the key
	assert.Empty(t, set.Update.SQL)

	ops := make([]string, 0, 4)
	for _, n := range set.Statements() {
		ops = append(ops, n.Op)
	}
	assert.Equal(t, []string{"get", "list", "insert", "delete"}, ops)
}

func TestForErrors(t *testing.T) {
	noKey := schema.NewTable("log", schema.Column{Name: "line", Type: schema.TextType})
	_, err := For(noKey, Options{})
	assert.ErrorContains(t, err, "primary key")

	_, err = For(personTable, Options{ScopeColumn: "tenant"})
	assert.ErrorContains(t, err, "scope column")

	_, err = For(schema.NewTable("", schema.Column{Name: "id", Type: schema.BigintType, PrimaryKey: true}), Options{})
	assert.ErrorContains(t, err, "table name is required")

	counter := schema.NewTable("counter", schema.Column{Name: "id", Type: schema.BigintType, PrimaryKey: true, Generated: true})
	b, err := For(counter, Options{})
	require.NoError(t, err)
	_, err = b.Insert(false)
	assert.ErrorContains(t, err, "no insertable columns")
	_, err = b.SoftDelete()
	assert.ErrorContains(t, err, "deleted_at")
	_, err = GenerateSQL(counter, compile.Postgres)
	assert.ErrorContains(t, err, "no insertable columns")
}

func TestListOffset(t *testing.T) {
	b, err := For(personTable, Options{})
	require.NoError(t, err)
	stmt, err := compile.ToSQL(b.List(5, 20), compile.MySQL)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "LIMIT 5 OFFSET 20")
}

func TestLifecycleSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE person (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER, deleted_at TIMESTAMP)`)
	require.NoError(t, err)

	ctx := t.Context()
	r := runner.New(runner.FromSQL(db), compile.SQLite)
	b, err := For(personTable, Options{})
	require.NoError(t, err)
	entity := decode.Entity(personTable)

	insert, err := b.Insert(true)
	require.NoError(t, err)
	for _, p := range []map[string]any{
		{"name": "ann", "age": 30},
		{"name": "bob", "age": nil},
	} {
		rec, found, err := runner.One(ctx, r, insert, entity, runner.WithParams(p))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, p["name"], mustField[string](t, rec, "name"))
	}

	got, found, err := runner.One(ctx, r, b.Get(), entity, runner.WithParams(map[string]any{"id": 2}))
	require.NoError(t, err)
	require.True(t, found)
	age, ok := got.Get("age")
	require.True(t, ok)
	assert.Nil(t, age)

	update, err := b.Update()
	require.NoError(t, err)
	n, err := runner.Exec(ctx, r, update, runner.WithParams(map[string]any{"id": 2, "name": "bob", "age": 12}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	soft, err := b.SoftDelete()
	require.NoError(t, err)
	n, err = runner.Exec(ctx, r, soft, runner.WithParams(map[string]any{"id": 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := runner.All(ctx, r, b.List(10, 0), entity)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", mustField[string](t, rows[0], "name"))
	assert.Equal(t, int64(12), mustField[int64](t, rows[0], "age"))

	_, found, err = runner.One(ctx, r, b.Get(), entity, runner.WithParams(map[string]any{"id": 1}))
	require.NoError(t, err)
	assert.False(t, found, "soft-deleted rows are hidden from get")

	n, err = runner.Exec(ctx, r, b.Delete(), runner.WithParams(map[string]any{"id": 1}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func mustField[T any](t *testing.T, r decode.Record, name string) T {
	t.Helper()
	v, err := decode.Field[T](r, name)
	require.NoError(t, err)
	return v
}
