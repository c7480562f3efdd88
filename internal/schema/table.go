// Package schema describes destination tables independently of any SQL
// dialect. Storage backends turn a Table into DDL and upsert statements.
package schema

import (
	"fmt"
	"slices"
)

// Type is the logical type of a column.
type Type int

const (
	Text Type = iota
	Bool
	Int
	Timestamp
	JSON
)

func (t Type) String() string {
	switch t {
	case Text:
		return "text"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Timestamp:
		return "timestamp"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Column is a single destination column.
type Column struct {
	Name    string
	Type    Type
	NotNull bool
}

// Table is a destination table. Key names the columns of the unique
// constraint used for conflict detection. Touch columns are never supplied
// by callers; backends set them to the current time on insert and update.
type Table struct {
	Name    string
	Columns []Column
	Key     []string
	Touch   []string
}

// IsKey reports whether name is part of the conflict key.
func (t Table) IsKey(name string) bool { return slices.Contains(t.Key, name) }

// IsTouch reports whether name is set by the backend.
func (t Table) IsTouch(name string) bool { return slices.Contains(t.Touch, name) }

// Inputs returns the columns callers supply values for, in table order.
func (t Table) Inputs() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !t.IsTouch(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// Updates returns the input columns overwritten on conflict.
func (t Table) Updates() []Column {
	var out []Column
	for _, c := range t.Inputs() {
		if !t.IsKey(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that the table is usable for upserts.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("schema: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("schema: table %s has no columns", t.Name)
	}
	if len(t.Key) == 0 {
		return fmt.Errorf("schema: table %s has no key", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema: table %s has a column with empty name", t.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema: table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, k := range t.Key {
		if !seen[k] {
			return fmt.Errorf("schema: table %s: key column %s not defined", t.Name, k)
		}
		if t.IsTouch(k) {
			return fmt.Errorf("schema: table %s: key column %s cannot be a touch column", t.Name, k)
		}
	}
	for _, c := range t.Touch {
		if !seen[c] {
			return fmt.Errorf("schema: table %s: touch column %s not defined", t.Name, c)
		}
	}
	return nil
}

// Archive returns the generic fallback table for collections without a
// typed mapping.
func Archive(name string) Table {
	return Table{
		Name: name,
		Columns: []Column{
			{Name: "collection_name", Type: Text, NotNull: true},
			{Name: "source_mongo_id", Type: Text},
			{Name: "payload", Type: JSON, NotNull: true},
			{Name: "imported_at", Type: Timestamp, NotNull: true},
		},
		Key:   []string{"collection_name", "source_mongo_id"},
		Touch: []string{"imported_at"},
	}
}

// DefaultArchiveTable is the archive table name used when none is configured.
const DefaultArchiveTable = "mongo_collection_archive"
