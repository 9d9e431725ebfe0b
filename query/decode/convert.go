package decode

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// converter turns one backend value into a value of a fixed Go type.
type converter func(v any) (any, error)

var errType = errors.New("unsupported value type")

var (
	timeType = reflect.TypeFor[time.Time]()
	uuidType = reflect.TypeFor[uuid.UUID]()
	jsonType = reflect.TypeFor[json.RawMessage]()
)

var converters = map[reflect.Type]converter{
	reflect.TypeFor[int]():     toInt,
	reflect.TypeFor[int32]():   toInt32,
	reflect.TypeFor[int64]():   wrap(toInt64),
	reflect.TypeFor[float64](): wrap(toFloat64),
	reflect.TypeFor[string]():  wrap(toString),
	reflect.TypeFor[bool]():    wrap(toBool),
	reflect.TypeFor[[]byte]():  wrap(toBytes),
	timeType:                   wrap(toTime),
	uuidType:                   wrap(toUUID),
	jsonType:                   wrap(toJSON),
}

// converterFor returns the converter for t. Pointer targets accept NULL
// and decode into a fresh pointer otherwise.
func converterFor(t reflect.Type) (converter, bool) {
	if conv, ok := converters[t]; ok {
		return strict(conv), true
	}
	if t.Kind() == reflect.Pointer {
		if conv, ok := converters[t.Elem()]; ok {
			return nullable(t.Elem(), conv), true
		}
	}
	return nil, false
}

func wrap[V any](f func(any) (V, error)) converter {
	return func(v any) (any, error) { return f(v) }
}

func strict(conv converter) converter {
	return func(v any) (any, error) {
		v, err := native(v)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, ErrNull
		}
		return conv(v)
	}
}

func nullable(elem reflect.Type, conv converter) converter {
	return func(v any) (any, error) {
		v, err := native(v)
		if err != nil || v == nil {
			return reflect.Zero(reflect.PointerTo(elem)).Interface(), err
		}
		out, err := conv(v)
		if err != nil {
			return nil, err
		}
		p := reflect.New(elem)
		p.Elem().Set(reflect.ValueOf(out))
		return p.Interface(), nil
	}
}

// native unwraps driver.Valuer values (pgtype.Numeric, sql.NullString, ...)
// into their driver representation.
func native(v any) (any, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		return valuer.Value()
	}
	return v, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	}
	return 0, errType
}

func toInt32(v any) (any, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%d overflows int32", n)
	}
	return int32(n), nil
}

func toInt(v any) (any, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	if n < math.MinInt || n > math.MaxInt {
		return nil, fmt.Errorf("%d overflows int", n)
	}
	return int(n), nil
}

// maxExactFloat is the largest integer magnitude a float64 holds exactly.
const maxExactFloat = 1 << 53

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		if x > maxExactFloat || x < -maxExactFloat {
			return 0, fmt.Errorf("%d is not exact as float64", x)
		}
		return float64(x), nil
	case int32:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	}
	return 0, errType
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return "", errType
}

// toDecimal keeps the exact text of a decimal value. Drivers hand decimals
// back as text, except SQLite which stores them with numeric affinity.
func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	}
	return toString(v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		switch x {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, fmt.Errorf("%d is not a boolean", x)
	case []byte:
		switch strings.ToLower(string(x)) {
		case "1", "t", "true":
			return true, nil
		case "0", "f", "false":
			return false, nil
		}
		return false, fmt.Errorf("%q is not a boolean", x)
	}
	return false, errType
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return append([]byte(nil), x...), nil
	case string:
		return []byte(x), nil
	}
	return nil, errType
}

// sqliteTimeFormats are the timestamp layouts SQLite drivers write and
// return as text.
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC3339Nano,
}

func toTime(v any) (time.Time, error) {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return time.Time{}, errType
	}
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqliteTimeFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a timestamp", s)
}

func toUUID(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		return uuid.Parse(x)
	case []byte:
		if len(x) == 16 {
			return uuid.FromBytes(x)
		}
		return uuid.ParseBytes(x)
	}
	return uuid.Nil, errType
}

func toJSON(v any) (json.RawMessage, error) {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = append([]byte(nil), x...)
	case []byte:
		raw = append([]byte(nil), x...)
	case string:
		raw = []byte(x)
	case map[string]any, []any:
		// pgx decodes json columns before handing them back
		return json.Marshal(x)
	default:
		return nil, errType
	}
	if !json.Valid(raw) {
		return nil, errors.New("invalid JSON")
	}
	return raw, nil
}
