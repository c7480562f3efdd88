// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and modernc.org/sqlite. Upserts use INSERT ... ON CONFLICT
// DO UPDATE; timestamps are stored as ISO-8601 UTC text and JSON as text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gazihan02-sys/sis-tekniktr/internal/ddl"
	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage/sqldb"
)

// nowExpr renders the current UTC time with millisecond precision.
const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ','now')`

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:import.db?_pragma=busy_timeout(5000)"
	//   ":memory:"
	DSN string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// Open opens a SQLite database. The pool is limited to one connection so that
// writers serialize and in-memory databases are shared by every caller.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// New wraps an open database.
func New(db *sql.DB) *Repository {
	return &Repository{Repository: sqldb.New(db, Dialect)}
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return New(db), closeFn, nil
}

// Dialect is the SQLite upsert dialect.
var Dialect = sqldb.Dialect{
	Name:      "sqlite",
	UpsertSQL: UpsertSQL,
	Encode:    encode,
}

// DDL is the SQLite CREATE TABLE dialect.
var DDL = ddl.Dialect{
	Quote: sqliteIdent,
	Types: map[schema.Type]string{
		schema.Text:      "TEXT",
		schema.Bool:      "INTEGER",
		schema.Int:       "INTEGER",
		schema.Timestamp: "TEXT",
		schema.JSON:      "TEXT",
	},
	Now:         "(" + nowExpr + ")",
	IfNotExists: true,
}

// UpsertSQL renders INSERT ... ON CONFLICT (key) DO UPDATE for t.
func UpsertSQL(t schema.Table) string {
	inputs := t.Inputs()
	cols := sqldb.Quoted(inputs, sqliteIdent)
	vals := sqldb.Placeholders(len(inputs), func(int) string { return "?" })
	var sets []string
	for _, c := range t.Updates() {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", sqliteIdent(c.Name), sqliteIdent(c.Name)))
	}
	for _, c := range t.Touch {
		cols = append(cols, sqliteIdent(c))
		vals = append(vals, nowExpr)
		sets = append(sets, fmt.Sprintf("%s = %s", sqliteIdent(c), nowExpr))
	}
	keys := make([]string, len(t.Key))
	for i, k := range t.Key {
		keys[i] = sqliteIdent(k)
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		DDL.QuoteFQN(t.Name), strings.Join(cols, ", "), strings.Join(vals, ", "), strings.Join(keys, ", "), action)
}

func encode(c schema.Column, v any) any {
	switch x := v.(type) {
	case time.Time:
		return document.FormatTime(x)
	case json.RawMessage:
		return string(x)
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// sqliteIdent quotes a single identifier.
func sqliteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
