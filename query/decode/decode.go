// Package decode maps raw result rows back to the shape a query declared.
//
// A row is the ordered slice of backend-native values a driver hands back
// (int64, float64, []byte, string, time.Time, [16]byte, nil, ...). A Shape
// knows how many columns it consumes and how to turn them into a Go value.
// Shapes compose: Tuple2..Tuple4 and Concat split a row into consecutive
// pieces, Optional turns an all-NULL piece into nil.
//
// Conversions are strict. A NULL only decodes into a pointer target, floats
// never decode into integers and integers that do not fit their target are
// rejected rather than truncated.
package decode

import (
	"errors"
	"fmt"
)

// Shape decodes a fixed number of consecutive columns into an R.
type Shape[R any] interface {
	// Width is the number of columns the shape consumes.
	Width() int

	// Decode converts exactly Width() values.
	Decode(row []any) (R, error)
}

// Decode checks the row arity against the shape and decodes it.
func Decode[R any](row []any, shape Shape[R]) (R, error) {
	if err := checkArity(row, shape.Width()); err != nil {
		var zero R
		return zero, err
	}
	return shape.Decode(row)
}

// DecodeError reports a row that does not match its declared shape.
//
// Arity failures set Expected and Actual and leave Column at -1. Column
// failures set Column (zero-based position in the row), Name when the shape
// knows the column name, Want (the target Go type) and Got (the value's
// type, or "NULL").
type DecodeError struct {
	Column   int
	Name     string
	Expected int
	Actual   int
	Want     string
	Got      string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("decode: row has %d columns, shape wants %d", e.Actual, e.Expected)
	}
	col := fmt.Sprintf("column %d", e.Column)
	if e.Name != "" {
		col += " (" + e.Name + ")"
	}
	msg := fmt.Sprintf("decode: %s: cannot decode %s into %s", col, e.Got, e.Want)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError returns true if err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ErrAbsentEntity is the cause of a DecodeError for an outer-joined entity
// decoded with a shape that is not wrapped in Optional.
var ErrAbsentEntity = errors.New("entity may be absent; wrap its shape in Optional")

// ErrNull is the cause of a DecodeError for a NULL read into a non-pointer target.
var ErrNull = errors.New("NULL into non-nullable target")

func checkArity(row []any, width int) error {
	if len(row) != width {
		return &DecodeError{Column: -1, Expected: width, Actual: len(row)}
	}
	return nil
}

// shift moves a nested shape's column error to its position in the
// enclosing row.
func shift(err error, offset int) error {
	var de *DecodeError
	if offset == 0 || !errors.As(err, &de) || de.Column < 0 {
		return err
	}
	moved := *de
	moved.Column += offset
	return &moved
}

func gotType(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%T", v)
}
