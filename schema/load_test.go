package schema

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	doc := `
tables:
  - name: person
    columns:
      - {name: id, type: bigint, primary_key: true, generated: true}
      - {name: name, type: string}
      - {name: parent_id, type: bigint, nullable: true}
  - name: pet
    columns:
      - {name: id, type: uuid, primary_key: true}
      - {name: owner_id, type: bigint}
`
	s, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(s.Tables))
	}

	person, ok := s.Table("person")
	if !ok {
		t.Fatal("person table not found")
	}
	if got := strings.Join(person.ColumnNames(), ","); got != "id,name,parent_id" {
		t.Errorf("column order = %s", got)
	}
	col, ok := person.Column("parent_id")
	if !ok || !col.Nullable {
		t.Errorf("parent_id should be nullable, got %+v", col)
	}
	pk := person.PrimaryKey()
	if len(pk) != 1 || pk[0].Name != "id" || !pk[0].Generated {
		t.Errorf("unexpected primary key %+v", pk)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown type",
			doc:  "tables:\n  - name: a\n    columns:\n      - {name: x, type: varchar}\n",
			want: "unknown type",
		},
		{
			name: "duplicate column",
			doc:  "tables:\n  - name: a\n    columns:\n      - {name: x, type: string}\n      - {name: x, type: text}\n",
			want: "duplicate column",
		},
		{
			name: "duplicate table",
			doc:  "tables:\n  - name: a\n    columns: [{name: x, type: string}]\n  - name: a\n    columns: [{name: y, type: string}]\n",
			want: "duplicate table",
		},
		{
			name: "no columns",
			doc:  "tables:\n  - name: a\n",
			want: "no columns",
		},
		{
			name: "unknown field",
			doc:  "tables:\n  - name: a\n    colums: []\n",
			want: "decode schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Tables) != 0 {
		t.Errorf("expected no tables, got %d", len(s.Tables))
	}
}

func TestSQLTypeAccepts(t *testing.T) {
	tests := []struct {
		typ    SQLType
		goType string
		want   bool
	}{
		{BigintType, "int64", true},
		{BigintType, "string", false},
		{IntegerType, "int32", true},
		{StringType, "string", true},
		{TimestampType, "time.Time", true},
		{BinaryType, "[]uint8", true},
		{UUIDType, "uuid.UUID", true},
		{BooleanType, "int64", false},
		{SQLType("nope"), "string", false},
	}
	for _, tt := range tests {
		if got := tt.typ.Accepts(tt.goType); got != tt.want {
			t.Errorf("%s.Accepts(%s) = %v, want %v", tt.typ, tt.goType, got, tt.want)
		}
	}
}
