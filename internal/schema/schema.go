// Package schema models the destination table shape for an ingestion run:
// ordered columns with logical types. The schema fixes the expected field
// count per CSV row and drives construction of the per-column decoders.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type is the logical column type understood by the field decoders.
type Type string

const (
	TypeInt64     Type = "int64"
	TypeFloat64   Type = "float64"
	TypeBool      Type = "bool"
	TypeString    Type = "string"
	TypeDate      Type = "date"
	TypeTimestamp Type = "timestamp"
)

// ParseType maps the loose spellings accepted in pipeline configs onto a
// canonical Type. Unknown spellings return an error.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "int64", "integer", "bigint":
		return TypeInt64, nil
	case "float", "float64", "real", "double":
		return TypeFloat64, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "string", "text", "varchar":
		return TypeString, nil
	case "date":
		return TypeDate, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// Column is one destination column.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Schema is an ordered, immutable column list.
type Schema struct {
	cols []Column
}

// New validates the column list and returns a Schema. Column names must be
// non-empty and unique; types must be canonical.
func New(cols []Column) (*Schema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema: at least one column required")
	}
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("schema: column %d has no name", i)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if _, err := ParseType(string(c.Type)); err != nil {
			return nil, fmt.Errorf("schema: column %q: %w", c.Name, err)
		}
	}
	// Normalize type spellings so downstream switches see canonical values.
	norm := make([]Column, len(cols))
	for i, c := range cols {
		t, _ := ParseType(string(c.Type))
		norm[i] = Column{Name: c.Name, Type: t}
	}
	return &Schema{cols: norm}, nil
}

// NumFields returns the expected field count per CSV row.
func (s *Schema) NumFields() int { return len(s.cols) }

// Columns returns the ordered column list. Callers must not mutate it.
func (s *Schema) Columns() []Column { return s.cols }

// Column returns the column at index i.
func (s *Schema) Column(i int) Column { return s.cols[i] }

// Names returns the ordered column names, e.g. for COPY statements.
func (s *Schema) Names() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.Name
	}
	return names
}

// UnmarshalJSON decodes a schema from its JSON column-list form and applies
// the same validation as New.
func (s *Schema) UnmarshalJSON(b []byte) error {
	var cols []Column
	if err := json.Unmarshal(b, &cols); err != nil {
		return err
	}
	ns, err := New(cols)
	if err != nil {
		return err
	}
	*s = *ns
	return nil
}

// MarshalJSON encodes the schema as its column list. The value receiver
// matters: schemas are marshaled as struct fields, which are not always
// addressable.
func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.cols)
}
