// Package mssql implements a Microsoft SQL Server repository on go-mssqldb.
// Each record is upserted with a single MERGE ... WITH (HOLDLOCK) statement so
// that concurrent writers cannot race between the match and the insert.
package mssql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/gazihan02-sys/sis-tekniktr/internal/ddl"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage/sqldb"
)

const nowExpr = "SYSUTCDATETIME()"

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{Repository: sqldb.New(db, Dialect)}, close, nil
}

// Dialect is the SQL Server upsert dialect.
var Dialect = sqldb.Dialect{
	Name:      "mssql",
	UpsertSQL: UpsertSQL,
	Encode:    encode,
}

// DDL is the SQL Server CREATE TABLE dialect. Key text columns are bounded
// so they fit the 900 byte index key limit.
var DDL = ddl.Dialect{
	Quote: msIdent,
	Types: map[schema.Type]string{
		schema.Text:      "NVARCHAR(MAX)",
		schema.Bool:      "BIT",
		schema.Int:       "BIGINT",
		schema.Timestamp: "DATETIMEOFFSET(6)",
		schema.JSON:      "NVARCHAR(MAX)",
	},
	KeyText: "NVARCHAR(200)",
	Now:     nowExpr,
}

// CreateTableSQL wraps the generic CREATE TABLE in an OBJECT_ID guard, since
// SQL Server has no CREATE TABLE IF NOT EXISTS.
func CreateTableSQL(t schema.Table) (string, error) {
	q, err := ddl.CreateTableSQL(t, DDL)
	if err != nil {
		return "", err
	}
	name := strings.ReplaceAll(t.Name, "'", "''")
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", name, q), nil
}

// UpsertSQL renders a MERGE keyed on t.Key. Parameters are @p1..@pN in
// t.Inputs() order.
func UpsertSQL(t schema.Table) string {
	inputs := t.Inputs()
	src := make([]string, len(inputs))
	for i, c := range inputs {
		src[i] = fmt.Sprintf("@p%d AS %s", i+1, msIdent(c.Name))
	}

	var sets []string
	for _, c := range t.Updates() {
		sets = append(sets, fmt.Sprintf("T.%s = S.%s", msIdent(c.Name), msIdent(c.Name)))
	}
	insCols := sqldb.Quoted(inputs, msIdent)
	insVals := make([]string, len(inputs))
	for i, c := range inputs {
		insVals[i] = "S." + msIdent(c.Name)
	}
	for _, c := range t.Touch {
		sets = append(sets, fmt.Sprintf("T.%s = %s", msIdent(c), nowExpr))
		insCols = append(insCols, msIdent(c))
		insVals = append(insVals, nowExpr)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s WITH (HOLDLOCK) AS T USING (SELECT %s) AS S ON %s",
		msFQN(t.Name), strings.Join(src, ", "), buildMatchCondition(t.Key))
	if len(sets) > 0 {
		fmt.Fprintf(&sb, " WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}
	fmt.Fprintf(&sb, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(insCols, ", "), strings.Join(insVals, ", "))
	return sb.String()
}

// encode sends JSON as NVARCHAR(MAX); other values use the driver defaults.
func encode(c schema.Column, v any) any {
	if raw, ok := v.(json.RawMessage); ok {
		return mssql.NVarCharMax(raw)
	}
	return v
}

// buildMatchCondition builds the MERGE join predicate on the key columns.
func buildMatchCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("T.%s = S.%s", msIdent(col), msIdent(col)))
	}
	return strings.Join(conds, " AND ")
}

func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}
