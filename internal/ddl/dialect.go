package ddl

import (
	"fmt"
	"strings"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
)

// Dialect carries the backend specifics FromSchema needs.
type Dialect struct {
	// Quote quotes a single identifier part.
	Quote func(string) string
	// Types maps logical column types to SQL types.
	Types map[schema.Type]string
	// KeyText, when set, replaces Types[schema.Text] for key columns. Engines
	// that cannot index unbounded text need a bounded type here.
	KeyText string
	// Now is the default expression for touch columns.
	Now string
	// IfNotExists selects CREATE TABLE IF NOT EXISTS.
	IfNotExists bool
}

// QuoteFQN quotes each dot-separated part of name.
func (d Dialect) QuoteFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.Quote(p)
	}
	return strings.Join(parts, ".")
}

// FromSchema builds a TableDef for t. Key columns form a UNIQUE constraint;
// touch columns default to d.Now.
func FromSchema(t schema.Table, d Dialect) (TableDef, error) {
	if err := t.Validate(); err != nil {
		return TableDef{}, err
	}
	def := TableDef{FQN: d.QuoteFQN(t.Name), IfNotExists: d.IfNotExists}
	for _, c := range t.Columns {
		typ, ok := d.Types[c.Type]
		if !ok {
			return TableDef{}, fmt.Errorf("ddl: no SQL type for %s column %s.%s", c.Type, t.Name, c.Name)
		}
		if c.Type == schema.Text && d.KeyText != "" && t.IsKey(c.Name) {
			typ = d.KeyText
		}
		cd := ColumnDef{Name: d.Quote(c.Name), SQLType: typ, Nullable: !c.NotNull}
		if t.IsTouch(c.Name) {
			cd.Default = d.Now
		}
		def.Columns = append(def.Columns, cd)
	}
	for _, k := range t.Key {
		def.Unique = append(def.Unique, d.Quote(k))
	}
	return def, nil
}

// CreateTableSQL is FromSchema followed by BuildCreateTableSQL.
func CreateTableSQL(t schema.Table, d Dialect) (string, error) {
	def, err := FromSchema(t, d)
	if err != nil {
		return "", err
	}
	return BuildCreateTableSQL(def)
}
