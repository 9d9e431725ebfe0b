package compile

import (
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/shipq/typedsql/query"
)

// AliasTable assigns table aliases for one top-level statement.
//
// A table referenced by exactly one source keeps its own name and is
// written without AS. Tables referenced more than once, and derived
// tables, get generated aliases: the singular table name (or "sub")
// followed by a number drawn from a single counter, so aliases in nested
// subqueries never repeat outer ones.
type AliasTable struct {
	counts  map[string]int
	taken   map[string]bool
	aliases map[query.Source]string
	counter int
}

// NewAliasTable prepares an alias table for q by counting how many
// distinct sources reference each table.
func NewAliasTable(q *query.Query) *AliasTable {
	t := &AliasTable{
		counts:  make(map[string]int),
		taken:   make(map[string]bool),
		aliases: make(map[query.Source]string),
	}
	for _, src := range query.Sources(q) {
		if ts, ok := src.(*query.TableSource); ok {
			t.counts[ts.Name()]++
		}
	}
	for name, n := range t.counts {
		if n == 1 && bareAliasOK(name) {
			t.taken[name] = true
		}
	}
	return t
}

// Allocate returns the alias of src, assigning one on first use.
func (t *AliasTable) Allocate(src query.Source) string {
	if alias, ok := t.aliases[src]; ok {
		return alias
	}

	var alias string
	switch s := src.(type) {
	case *query.TableSource:
		name := s.Name()
		if t.counts[name] <= 1 && bareAliasOK(name) {
			alias = name
		} else {
			alias = t.next(aliasBase(name))
		}
	default:
		alias = t.next("sub")
	}

	t.taken[alias] = true
	t.aliases[src] = alias
	return alias
}

// pin assigns a table its own name, for statements whose target cannot be
// aliased (INSERT).
func (t *AliasTable) pin(src *query.TableSource) string {
	if alias, ok := t.aliases[src]; ok {
		return alias
	}
	t.taken[src.Name()] = true
	t.aliases[src] = src.Name()
	return src.Name()
}

// Lookup returns the alias previously assigned to src.
func (t *AliasTable) Lookup(src query.Source) (string, bool) {
	alias, ok := t.aliases[src]
	return alias, ok
}

func (t *AliasTable) next(base string) string {
	for {
		t.counter++
		candidate := base + strconv.Itoa(t.counter)
		if !t.taken[candidate] {
			return candidate
		}
	}
}

// bareAliasOK reports whether a table name can double as its own alias.
func bareAliasOK(name string) bool {
	return isPlainIdentifier(name) && !isReserved(name)
}

// aliasBase derives a lowercase ASCII base from a table name.
func aliasBase(table string) string {
	singular := inflection.Singular(strings.ToLower(table))
	var b strings.Builder
	for _, r := range singular {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && b.Len() > 0:
			b.WriteRune(r)
		}
	}
	base := b.String()
	// a trailing digit would run into the counter
	base = strings.TrimRight(base, "0123456789")
	if base == "" {
		return "t"
	}
	return base
}

// scope is the set of sources visible to one (sub)query. Lookups walk
// outwards, which is what makes correlated subqueries resolve.
type scope struct {
	parent  *scope
	sources map[query.Source]bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, sources: make(map[query.Source]bool)}
}

func (s *scope) declare(src query.Source) {
	s.sources[src] = true
}

func (s *scope) resolves(src query.Source) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.sources[src] {
			return true
		}
	}
	return false
}
