// Package schema describes the entity metadata the query layer consumes:
// a table name plus its ordered columns, each with an SQL type and a
// nullability flag. Metadata is read-only once loaded.
package schema

import (
	"fmt"
	"strings"
)

// SQLType is a portable column type name.
type SQLType string

// Portable column types.
const (
	IntegerType   SQLType = "integer"
	BigintType    SQLType = "bigint"
	DecimalType   SQLType = "decimal"
	FloatType     SQLType = "float"
	BooleanType   SQLType = "boolean"
	StringType    SQLType = "string"
	TextType      SQLType = "text"
	DatetimeType  SQLType = "datetime"
	TimestampType SQLType = "timestamp"
	BinaryType    SQLType = "binary"
	JSONType      SQLType = "json"
	UUIDType      SQLType = "uuid"
)

// goTypes lists the Go types (reflect.Type.String form) a typed column of
// each SQL type may be declared with.
var goTypes = map[SQLType][]string{
	IntegerType:   {"int32", "int64", "int"},
	BigintType:    {"int64", "int"},
	DecimalType:   {"string", "float64"},
	FloatType:     {"float64", "float32"},
	BooleanType:   {"bool"},
	StringType:    {"string"},
	TextType:      {"string"},
	DatetimeType:  {"time.Time"},
	TimestampType: {"time.Time"},
	BinaryType:    {"[]uint8"},
	JSONType:      {"json.RawMessage", "[]uint8", "string"},
	UUIDType:      {"uuid.UUID", "string"},
}

// Valid reports whether t is a known type.
func (t SQLType) Valid() bool {
	_, ok := goTypes[t]
	return ok
}

// Accepts reports whether a column of type t may be read into or compared
// with values of the named Go type.
func (t SQLType) Accepts(goType string) bool {
	for _, g := range goTypes[t] {
		if g == goType {
			return true
		}
	}
	return false
}

// GoTypes returns the Go types accepted for t.
func (t SQLType) GoTypes() []string {
	return append([]string(nil), goTypes[t]...)
}

// Column is one declared column of a table.
type Column struct {
	Name       string  `yaml:"name" json:"name"`
	Type       SQLType `yaml:"type" json:"type"`
	Nullable   bool    `yaml:"nullable" json:"nullable"`
	PrimaryKey bool    `yaml:"primary_key" json:"primary_key"`
	// Generated columns are filled by the database (serial ids, defaults)
	// and left out of generated INSERT statements.
	Generated bool `yaml:"generated" json:"generated"`
}

// Table is the metadata for one entity.
type Table struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// NewTable builds a table from its columns in declaration order.
func NewTable(name string, cols ...Column) *Table {
	return &Table{Name: name, Columns: cols}
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey returns the primary key columns in declaration order.
func (t *Table) PrimaryKey() []Column {
	var pk []Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// Validate checks that the table has a name, at least one column, unique
// column names and known column types.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s: no columns", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("table %s: column name is required", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("table %s: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
		if !c.Type.Valid() {
			return fmt.Errorf("table %s: column %s: unknown type %q", t.Name, c.Name, c.Type)
		}
	}
	return nil
}
