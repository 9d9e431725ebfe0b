package compile

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex matches valid SQL identifiers.
// Identifiers must start with a letter or underscore, followed by letters, digits, or underscores.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// funcNameRegex allows schema-qualified function names.
var funcNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// ValidateIdentifier checks that a name is a valid SQL identifier.
// Valid identifiers match: ^[a-zA-Z_][a-zA-Z0-9_]*$
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must start with a letter or underscore and contain only letters, digits, and underscores", name)
	}
	return nil
}

func isPlainIdentifier(name string) bool {
	return identifierRegex.MatchString(name)
}

// reservedWords are keywords reserved by at least one supported backend.
// Aliases are never generated from this set, and the generic dialect quotes
// identifiers that appear in it.
var reservedWords = map[string]bool{
	"all": true, "alter": true, "analyze": true, "and": true, "any": true, "as": true,
	"asc": true, "between": true, "both": true, "by": true, "case": true, "cast": true,
	"check": true, "collate": true, "column": true, "constraint": true, "create": true,
	"cross": true, "current_date": true, "current_time": true, "current_timestamp": true,
	"current_user": true, "default": true, "delete": true, "desc": true, "distinct": true,
	"drop": true, "else": true, "end": true, "except": true, "exists": true, "false": true,
	"fetch": true, "for": true, "foreign": true, "from": true, "full": true, "grant": true,
	"group": true, "having": true, "if": true, "in": true, "index": true, "inner": true,
	"insert": true, "intersect": true, "interval": true, "into": true, "is": true,
	"join": true, "key": true, "leading": true, "left": true, "like": true, "limit": true,
	"natural": true, "not": true, "null": true, "offset": true, "on": true, "or": true,
	"order": true, "outer": true, "primary": true, "references": true, "returning": true,
	"right": true, "select": true, "set": true, "table": true, "then": true, "to": true,
	"trailing": true, "true": true, "union": true, "unique": true, "update": true,
	"user": true, "using": true, "values": true, "when": true, "where": true, "window": true,
	"with": true,
}

func isReserved(name string) bool {
	return reservedWords[strings.ToLower(name)]
}
