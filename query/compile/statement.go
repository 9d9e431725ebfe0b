package compile

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Statement is a rendered statement: SQL text plus one argument per
// placeholder, in the order the placeholders appear in the text.
type Statement struct {
	SQL  string
	Args []any
	// Names holds, per placeholder, the name of a parameter that still has
	// to be bound, or "" for slots that already carry their value.
	Names   []string
	Dialect string
}

// Bind returns a copy of the statement with named parameters filled from
// values. Every parameter must be present; extra keys are ignored.
func (s Statement) Bind(values map[string]any) (Statement, error) {
	out := Statement{
		SQL:     s.SQL,
		Args:    append([]any(nil), s.Args...),
		Names:   append([]string(nil), s.Names...),
		Dialect: s.Dialect,
	}
	var missing []string
	for i, name := range out.Names {
		if name == "" {
			continue
		}
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out.Args[i] = v
		out.Names[i] = ""
	}
	if len(missing) > 0 {
		return Statement{}, fmt.Errorf("%w: %s", ErrUnboundParam, strings.Join(dedupe(missing), ", "))
	}
	return out, nil
}

// Unbound returns the distinct names of parameters still to be bound.
func (s Statement) Unbound() []string {
	var names []string
	for _, n := range s.Names {
		if n != "" {
			names = append(names, n)
		}
	}
	return dedupe(names)
}

// Ready returns ErrUnboundParam if any placeholder has no value yet.
func (s Statement) Ready() error {
	if unbound := s.Unbound(); len(unbound) > 0 {
		return fmt.Errorf("%w: %s", ErrUnboundParam, strings.Join(unbound, ", "))
	}
	return nil
}

// Fingerprint identifies the statement shape (dialect and SQL text,
// not argument values) as a hex BLAKE2b-256 digest.
func (s Statement) Fingerprint() string {
	buf := make([]byte, 0, len(s.Dialect)+1+len(s.SQL))
	buf = append(buf, s.Dialect...)
	buf = append(buf, 0)
	buf = append(buf, s.SQL...)
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func (s Statement) String() string {
	return s.SQL
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
