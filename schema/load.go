package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema is a set of tables loaded from a schema file.
type Schema struct {
	Tables []*Table `yaml:"tables"`
}

// Table returns the table with the given name.
func (s *Schema) Table(name string) (*Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Parse reads a YAML schema document:
//
//	tables:
//	  - name: person
//	    columns:
//	      - {name: id, type: bigint, primary_key: true, generated: true}
//	      - {name: name, type: string}
func Parse(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &Schema{}, nil
		}
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	seen := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		seen[t.Name] = true
	}
	return &s, nil
}

// Load reads and parses a schema file from disk.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
