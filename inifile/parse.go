// Package inifile reads the small INI dialect used by typedsql.ini.
//
// Sections are [name] or [prefix.name]; keys and section names are
// case-insensitive; values may be double-quoted and may reference
// environment variables as ${VAR}. Lines starting with # or ; are comments.
package inifile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// File is a parsed INI file.
type File struct {
	Sections []Section
}

// Section is a named section. Values keep file order; a repeated key
// keeps every occurrence.
type Section struct {
	Name   string
	Values []KeyValue
}

// KeyValue is one key = value line.
type KeyValue struct {
	Key   string
	Value string
	Line  int
}

// ParseError reports a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Option configures Parse.
type Option func(*parser)

type parser struct {
	lookup func(string) (string, bool)
}

// WithLookup expands ${VAR} references in values with lookup. Unknown
// variables expand to the empty string.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(p *parser) { p.lookup = lookup }
}

// WithEnv expands ${VAR} references from the process environment.
func WithEnv() Option {
	return WithLookup(os.LookupEnv)
}

// Parse reads an INI file. Keys outside a section, lines without '=' and
// unterminated quotes are errors.
func Parse(r io.Reader, opts ...Option) (*File, error) {
	var p parser
	for _, opt := range opts {
		opt(&p)
	}

	f := &File{}
	var current *Section
	lineNo := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Line: lineNo, Msg: "unterminated section header"}
			}
			name := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if name == "" {
				return nil, &ParseError{Line: lineNo, Msg: "empty section name"}
			}
			current = f.section(name)
			continue
		}

		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("expected key = value, got %q", line)}
		}
		if current == nil {
			return nil, &ParseError{Line: lineNo, Msg: "key outside of a section"}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, &ParseError{Line: lineNo, Msg: "empty key"}
		}
		value, err := p.value(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ParseError{Line: lineNo, Msg: err.Error()}
		}
		current.Values = append(current.Values, KeyValue{Key: key, Value: value, Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// value unquotes raw and expands variables. Quoted values keep '#'
// and surrounding spaces; unquoted values end at " #" or " ;".
func (p *parser) value(raw string) (string, error) {
	if strings.HasPrefix(raw, `"`) {
		end := closingQuote(raw)
		if end < 0 {
			return "", fmt.Errorf("unterminated quoted value")
		}
		s, err := strconv.Unquote(raw[:end+1])
		if err != nil {
			return "", fmt.Errorf("invalid quoted value: %v", err)
		}
		return p.expand(s), nil
	}
	for _, marker := range []string{" #", " ;", "\t#", "\t;"} {
		if i := strings.Index(raw, marker); i >= 0 {
			raw = strings.TrimSpace(raw[:i])
		}
	}
	return p.expand(raw), nil
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func (p *parser) expand(s string) string {
	if p.lookup == nil || !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(name string) string {
		v, _ := p.lookup(name)
		return v
	})
}

func (f *File) section(name string) *Section {
	if s := f.Section(name); s != nil {
		return s
	}
	f.Sections = append(f.Sections, Section{Name: name})
	return &f.Sections[len(f.Sections)-1]
}

// ParseFile reads and parses an INI file from disk. Errors carry the path.
func ParseFile(path string, opts ...Option) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Parse(fh, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Section returns the section with the given name (case-insensitive).
// Repeated headers for one name are merged into a single section.
func (f *File) Section(name string) *Section {
	name = strings.ToLower(name)
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// Get returns the last value for a key in a section.
func (f *File) Get(section, key string) string {
	s := f.Section(section)
	if s == nil {
		return ""
	}
	return s.Get(key)
}

// SectionsWithPrefix returns sections whose names start with prefix.
func (f *File) SectionsWithPrefix(prefix string) []Section {
	prefix = strings.ToLower(prefix)
	var result []Section
	for _, s := range f.Sections {
		if strings.HasPrefix(s.Name, prefix) {
			result = append(result, s)
		}
	}
	return result
}

// Lookup returns the last value for a key and whether it was present.
func (s *Section) Lookup(key string) (KeyValue, bool) {
	key = strings.ToLower(key)
	var (
		found KeyValue
		ok    bool
	)
	for _, kv := range s.Values {
		if kv.Key == key {
			found, ok = kv, true
		}
	}
	return found, ok
}

// Get returns the last value for a key (case-insensitive).
func (s *Section) Get(key string) string {
	kv, _ := s.Lookup(key)
	return kv.Value
}

// HasKey reports whether the section contains key, even with an empty value.
func (s *Section) HasKey(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Bool returns a boolean value; true/false, yes/no, on/off and 1/0 are
// accepted. def is returned when the key is absent or empty.
func (s *Section) Bool(key string, def bool) (bool, error) {
	kv, ok := s.Lookup(key)
	if !ok || kv.Value == "" {
		return def, nil
	}
	switch strings.ToLower(kv.Value) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, &ParseError{Line: kv.Line, Msg: fmt.Sprintf("%s: invalid boolean %q", kv.Key, kv.Value)}
}

// Int returns an integer value, or def when the key is absent or empty.
func (s *Section) Int(key string, def int) (int, error) {
	kv, ok := s.Lookup(key)
	if !ok || kv.Value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(kv.Value)
	if err != nil {
		return 0, &ParseError{Line: kv.Line, Msg: fmt.Sprintf("%s: invalid integer %q", kv.Key, kv.Value)}
	}
	return n, nil
}
