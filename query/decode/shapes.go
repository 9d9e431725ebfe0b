package decode

import (
	"fmt"
	"reflect"
)

type scalarShape[T any] struct {
	conv converter
	want string
	err  error
}

// Scalar decodes one column into T. Supported targets are int, int32,
// int64, float64, string, bool, []byte, time.Time, uuid.UUID and
// json.RawMessage, plus a pointer to any of them for nullable columns.
// Any other T fails every Decode call.
func Scalar[T any]() Shape[T] {
	t := reflect.TypeFor[T]()
	conv, ok := converterFor(t)
	s := scalarShape[T]{conv: conv, want: t.String()}
	if !ok {
		s.err = fmt.Errorf("decode: unsupported target type %s", t)
	}
	return s
}

func (s scalarShape[T]) Width() int { return 1 }

func (s scalarShape[T]) presence() []bool { return []bool{false} }

func (s scalarShape[T]) Decode(row []any) (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}
	if err := checkArity(row, 1); err != nil {
		return zero, err
	}
	out, err := s.conv(row[0])
	if err != nil {
		return zero, &DecodeError{Column: 0, Want: s.want, Got: gotType(row[0]), Err: err}
	}
	return out.(T), nil
}

// T2 is a decoded pair.
type T2[A, B any] struct {
	V1 A
	V2 B
}

// T3 is a decoded triple.
type T3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

// T4 is a decoded four-tuple.
type T4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

type tupleShape[R any] struct {
	widths  []int
	present []bool
	decode  func(parts [][]any) (R, error)
}

func (s tupleShape[R]) presence() []bool { return s.present }

func (s tupleShape[R]) Width() int {
	n := 0
	for _, w := range s.widths {
		n += w
	}
	return n
}

func (s tupleShape[R]) Decode(row []any) (R, error) {
	var zero R
	if err := checkArity(row, s.Width()); err != nil {
		return zero, err
	}
	return s.decode(split(row, s.widths))
}

func split(row []any, widths []int) [][]any {
	parts := make([][]any, len(widths))
	off := 0
	for i, w := range widths {
		parts[i] = row[off : off+w : off+w]
		off += w
	}
	return parts
}

// part decodes the i-th piece of a split row and moves any column error to
// its position in the whole row.
func part[R any](s Shape[R], parts [][]any, i int) (R, error) {
	off := 0
	for _, p := range parts[:i] {
		off += len(p)
	}
	v, err := s.Decode(parts[i])
	return v, shift(err, off)
}

// Tuple2 decodes two consecutive shapes.
func Tuple2[A, B any](a Shape[A], b Shape[B]) Shape[T2[A, B]] {
	return tupleShape[T2[A, B]]{
		widths:  []int{a.Width(), b.Width()},
		present: concatPresence(Presence(a), Presence(b)),
		decode: func(parts [][]any) (out T2[A, B], err error) {
			if out.V1, err = part(a, parts, 0); err != nil {
				return out, err
			}
			out.V2, err = part(b, parts, 1)
			return out, err
		},
	}
}

// Tuple3 decodes three consecutive shapes.
func Tuple3[A, B, C any](a Shape[A], b Shape[B], c Shape[C]) Shape[T3[A, B, C]] {
	return tupleShape[T3[A, B, C]]{
		widths:  []int{a.Width(), b.Width(), c.Width()},
		present: concatPresence(Presence(a), Presence(b), Presence(c)),
		decode: func(parts [][]any) (out T3[A, B, C], err error) {
			if out.V1, err = part(a, parts, 0); err != nil {
				return out, err
			}
			if out.V2, err = part(b, parts, 1); err != nil {
				return out, err
			}
			out.V3, err = part(c, parts, 2)
			return out, err
		},
	}
}

// Tuple4 decodes four consecutive shapes.
func Tuple4[A, B, C, D any](a Shape[A], b Shape[B], c Shape[C], d Shape[D]) Shape[T4[A, B, C, D]] {
	return tupleShape[T4[A, B, C, D]]{
		widths:  []int{a.Width(), b.Width(), c.Width(), d.Width()},
		present: concatPresence(Presence(a), Presence(b), Presence(c), Presence(d)),
		decode: func(parts [][]any) (out T4[A, B, C, D], err error) {
			if out.V1, err = part(a, parts, 0); err != nil {
				return out, err
			}
			if out.V2, err = part(b, parts, 1); err != nil {
				return out, err
			}
			if out.V3, err = part(c, parts, 2); err != nil {
				return out, err
			}
			out.V4, err = part(d, parts, 3)
			return out, err
		},
	}
}

type anyShape[R any] struct{ inner Shape[R] }

func (s anyShape[R]) Width() int { return s.inner.Width() }

func (s anyShape[R]) presence() []bool { return Presence(s.inner) }

func (s anyShape[R]) Decode(row []any) (any, error) { return s.inner.Decode(row) }

// Any erases a shape's result type so it can be passed to Concat.
func Any[R any](s Shape[R]) Shape[any] {
	return anyShape[R]{inner: s}
}

// Concat decodes a row made of several consecutive projections, returning
// one decoded value per shape.
func Concat(shapes ...Shape[any]) Shape[[]any] {
	widths := make([]int, len(shapes))
	present := make([][]bool, len(shapes))
	for i, s := range shapes {
		widths[i] = s.Width()
		present[i] = Presence(s)
	}
	return tupleShape[[]any]{
		widths:  widths,
		present: concatPresence(present...),
		decode: func(parts [][]any) ([]any, error) {
			out := make([]any, len(shapes))
			for i, s := range shapes {
				v, err := part(s, parts, i)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		},
	}
}

type optionalShape[R any] struct{ inner Shape[R] }

// Optional decodes the columns of an outer-joined entity: nil when every
// column is NULL, the decoded value otherwise.
func Optional[R any](s Shape[R]) Shape[*R] {
	return optionalShape[R]{inner: s}
}

func (s optionalShape[R]) Width() int { return s.inner.Width() }

func (s optionalShape[R]) presence() []bool { return make([]bool, s.Width()) }

func (s optionalShape[R]) Decode(row []any) (*R, error) {
	if err := checkArity(row, s.Width()); err != nil {
		return nil, err
	}
	absent := true
	for _, v := range row {
		if v != nil {
			absent = false
			break
		}
	}
	if absent {
		return nil, nil
	}
	v, err := s.inner.Decode(row)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type presencer interface {
	presence() []bool
}

// Presence reports, per column, whether s needs the row behind that column
// to exist: true for columns of a plain Entity or Struct, false under
// Optional and for scalars. Shapes defined outside this package report
// false for every column.
func Presence[R any](s Shape[R]) []bool {
	if p, ok := any(s).(presencer); ok {
		return p.presence()
	}
	return make([]bool, s.Width())
}

func concatPresence(parts ...[]bool) []bool {
	var out []bool
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
