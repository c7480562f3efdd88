package ddl

// ColumnDef describes a single column in a table definition produced or
// consumed by ddl. It uses simple, database-agnostic fields.
//
// Fields:
//   - Name: column name as emitted (already quoted when built by FromSchema)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, TIMESTAMPTZ)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name and an ordered list of columns. Unique lists
// the columns of a single UNIQUE constraint; IfNotExists renders the
// CREATE TABLE IF NOT EXISTS form.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	Unique      []string
	IfNotExists bool
}
