// Package mysql implements a MySQL repository on go-sql-driver/mysql. Upserts
// use INSERT ... ON DUPLICATE KEY UPDATE against the table's unique key.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/gazihan02-sys/sis-tekniktr/internal/ddl"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage/sqldb"
)

const nowExpr = "UTC_TIMESTAMP(6)"

// Config holds MySQL repository configuration.
type Config struct {
	DSN string // go-sql-driver DSN, e.g. user:pass@tcp(host:3306)/db
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// ParseDSN parses dsn and forces UTC time handling so DATETIME columns
// round-trip without a session time zone.
func ParseDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{Repository: sqldb.New(db, Dialect)}, close, nil
}

// Dialect is the MySQL upsert dialect.
var Dialect = sqldb.Dialect{
	Name:      "mysql",
	UpsertSQL: UpsertSQL,
	Encode:    encode,
}

// DDL is the MySQL CREATE TABLE dialect. Key text columns are VARCHAR so they
// can be indexed under utf8mb4.
var DDL = ddl.Dialect{
	Quote: myIdent,
	Types: map[schema.Type]string{
		schema.Text:      "TEXT",
		schema.Bool:      "BOOLEAN",
		schema.Int:       "BIGINT",
		schema.Timestamp: "DATETIME(6)",
		schema.JSON:      "JSON",
	},
	KeyText:     "VARCHAR(191)",
	Now:         "(" + nowExpr + ")",
	IfNotExists: true,
}

// UpsertSQL renders INSERT ... ON DUPLICATE KEY UPDATE for t.
func UpsertSQL(t schema.Table) string {
	inputs := t.Inputs()
	cols := sqldb.Quoted(inputs, myIdent)
	vals := sqldb.Placeholders(len(inputs), func(int) string { return "?" })
	var sets []string
	for _, c := range t.Updates() {
		sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", myIdent(c.Name), myIdent(c.Name)))
	}
	for _, c := range t.Touch {
		cols = append(cols, myIdent(c))
		vals = append(vals, nowExpr)
		sets = append(sets, fmt.Sprintf("%s = %s", myIdent(c), nowExpr))
	}
	if len(sets) == 0 {
		k := myIdent(t.Key[0])
		sets = append(sets, k+" = "+k)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		DDL.QuoteFQN(t.Name), strings.Join(cols, ", "), strings.Join(vals, ", "), strings.Join(sets, ", "))
}

func encode(c schema.Column, v any) any {
	switch x := v.(type) {
	case json.RawMessage:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}

// myIdent quotes a single identifier with backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }
