package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/shipq/typedsql/schema"
)

// entityTypes is the Go type each column type decodes into inside a Record.
var entityTypes = map[schema.SQLType]reflect.Type{
	schema.IntegerType:   reflect.TypeFor[int64](),
	schema.BigintType:    reflect.TypeFor[int64](),
	schema.DecimalType:   reflect.TypeFor[string](),
	schema.FloatType:     reflect.TypeFor[float64](),
	schema.BooleanType:   reflect.TypeFor[bool](),
	schema.StringType:    reflect.TypeFor[string](),
	schema.TextType:      reflect.TypeFor[string](),
	schema.DatetimeType:  timeType,
	schema.TimestampType: timeType,
	schema.BinaryType:    reflect.TypeFor[[]byte](),
	schema.JSONType:      jsonType,
	schema.UUIDType:      uuidType,
}

// Record is one decoded entity row: the table's column values in
// declaration order. Nullable columns hold nil for NULL.
type Record struct {
	table  *schema.Table
	values []any
}

// Table returns the entity metadata the record was decoded with.
func (r Record) Table() *schema.Table { return r.table }

// Values returns the column values in declaration order.
func (r Record) Values() []any { return r.values }

// Get returns the value of the named column.
func (r Record) Get(name string) (any, bool) {
	if r.table == nil {
		return nil, false
	}
	for i, c := range r.table.Columns {
		if c.Name == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Field returns the named column of r as a T.
func Field[T any](r Record, name string) (T, error) {
	var zero T
	v, ok := r.Get(name)
	if !ok {
		return zero, fmt.Errorf("decode: record has no column %q", name)
	}
	if v == nil {
		return zero, fmt.Errorf("decode: column %q is NULL", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("decode: column %q is %T, not %s", name, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// MarshalJSON writes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.table.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(c.Name)
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type column struct {
	name     string
	nullable bool
	want     string
	conv     converter
}

func (c column) decode(i int, raw any) (any, error) {
	v, err := native(raw)
	if err != nil {
		return nil, &DecodeError{Column: i, Name: c.name, Want: c.want, Got: gotType(raw), Err: err}
	}
	if v == nil {
		if c.nullable {
			return nil, nil
		}
		return nil, &DecodeError{Column: i, Name: c.name, Want: c.want, Got: "NULL", Err: ErrNull}
	}
	out, err := c.conv(v)
	if err != nil {
		return nil, &DecodeError{Column: i, Name: c.name, Want: c.want, Got: gotType(v), Err: err}
	}
	return out, nil
}

func passthrough(v any) (any, error) { return v, nil }

type entityShape struct {
	table *schema.Table
	cols  []column
}

// Entity decodes a whole-entity projection: one column per table column,
// in declaration order.
func Entity(table *schema.Table) Shape[Record] {
	s := entityShape{table: table, cols: make([]column, len(table.Columns))}
	for i, c := range table.Columns {
		t, ok := entityTypes[c.Type]
		conv := converters[t]
		switch {
		case !ok:
			t, conv = reflect.TypeFor[any](), passthrough
		case c.Type == schema.DecimalType:
			conv = toDecimal
		}
		s.cols[i] = column{name: c.Name, nullable: c.Nullable, want: t.String(), conv: strict(conv)}
	}
	return s
}

func (s entityShape) Width() int { return len(s.cols) }

func (s entityShape) presence() []bool { return required(len(s.cols)) }

func (s entityShape) Decode(row []any) (Record, error) {
	if err := checkArity(row, len(s.cols)); err != nil {
		return Record{}, err
	}
	values := make([]any, len(row))
	for i, c := range s.cols {
		v, err := c.decode(i, row[i])
		if err != nil {
			return Record{}, err
		}
		values[i] = v
	}
	return Record{table: s.table, values: values}, nil
}

type structShape[T any] struct {
	cols   []column
	fields [][]int // field index path per column, nil when the column is skipped
	err    error
}

// Struct decodes a whole-entity projection into a T whose fields carry
// `db:"column"` tags. Columns without a matching field are skipped and
// NULL only decodes into pointer fields. A tag naming a column the table
// lacks, or a field type the column type does not accept, fails every
// Decode call.
func Struct[T any](table *schema.Table) Shape[T] {
	t := reflect.TypeFor[T]()
	s := structShape[T]{
		cols:   make([]column, len(table.Columns)),
		fields: make([][]int, len(table.Columns)),
	}
	if t.Kind() != reflect.Struct {
		s.err = fmt.Errorf("decode: %s is not a struct", t)
		return s
	}

	byColumn := make(map[string]reflect.StructField)
	for _, f := range reflect.VisibleFields(t) {
		tag, _, _ := strings.Cut(f.Tag.Get("db"), ",")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if _, ok := table.Column(tag); !ok {
			s.err = fmt.Errorf("decode: %s.%s: table %s has no column %q", t, f.Name, table.Name, tag)
			return s
		}
		byColumn[tag] = f
	}

	for i, c := range table.Columns {
		f, ok := byColumn[c.Name]
		if !ok {
			continue
		}
		target := f.Type
		if target.Kind() == reflect.Pointer {
			target = target.Elem()
		}
		if !c.Type.Accepts(target.String()) {
			s.err = fmt.Errorf("decode: %s.%s: column %s.%s (%s) does not decode into %s",
				t, f.Name, table.Name, c.Name, c.Type, f.Type)
			return s
		}
		conv, ok := converterFor(f.Type)
		if !ok {
			s.err = fmt.Errorf("decode: %s.%s: unsupported field type %s", t, f.Name, f.Type)
			return s
		}
		if c.Type == schema.DecimalType && target.Kind() == reflect.String {
			conv = narrowDecimal(f.Type)
		}
		nullable := f.Type.Kind() == reflect.Pointer
		s.cols[i] = column{name: c.Name, nullable: nullable, want: f.Type.String(), conv: conv}
		s.fields[i] = f.Index
	}
	return s
}

// narrowDecimal decodes a decimal column into a string or *string field.
func narrowDecimal(t reflect.Type) converter {
	if t.Kind() == reflect.Pointer {
		return nullable(t.Elem(), toDecimal)
	}
	return strict(toDecimal)
}

func (s structShape[T]) Width() int { return len(s.cols) }

func (s structShape[T]) presence() []bool { return required(len(s.cols)) }

func required(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func (s structShape[T]) Decode(row []any) (T, error) {
	var out T
	if s.err != nil {
		return out, s.err
	}
	if err := checkArity(row, len(s.cols)); err != nil {
		return out, err
	}
	dst := reflect.ValueOf(&out).Elem()
	for i, c := range s.cols {
		if s.fields[i] == nil {
			continue
		}
		v, err := c.decode(i, row[i])
		if err != nil {
			return out, err
		}
		if v == nil {
			continue
		}
		field, err := dst.FieldByIndexErr(s.fields[i])
		if err != nil {
			return out, fmt.Errorf("decode: column %s: %w", c.name, err)
		}
		field.Set(reflect.ValueOf(v))
	}
	return out, nil
}
