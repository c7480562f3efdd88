// Package sqldb implements storage.Repository and storage.Tx on top of
// database/sql for backends whose drivers speak that interface (sqlite, mssql,
// mysql). Backends supply a Dialect with their upsert SQL and value encoding.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// Dialect carries the backend-specific parts of the upsert path.
type Dialect struct {
	// Name prefixes error messages ("sqlite", "mssql", ...).
	Name string
	// UpsertSQL renders the parameterized upsert statement for t. Parameters
	// follow t.Inputs() order.
	UpsertSQL func(t schema.Table) string
	// Encode converts a mapped value for column c into a driver value. Nil
	// means values are passed through.
	Encode func(c schema.Column, v any) any
}

// Repository is a database/sql-backed store.
type Repository struct {
	db      *sql.DB
	dialect Dialect

	mu      sync.Mutex
	queries map[string]string
}

// New wraps db. The caller keeps ownership of db and closes it.
func New(db *sql.DB, d Dialect) *Repository {
	return &Repository{db: db, dialect: d, queries: map[string]string{}}
}

// DB exposes the underlying handle for tests and diagnostics.
func (r *Repository) DB() *sql.DB { return r.db }

// Exec runs a single statement outside any transaction.
func (r *Repository) Exec(ctx context.Context, q string) error {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("%s: exec: %w", r.dialect.Name, err)
	}
	return nil
}

// Begin opens a transaction.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", r.dialect.Name, err)
	}
	return &Tx{r: r, tx: tx, stmts: map[string]*sql.Stmt{}}, nil
}

func (r *Repository) query(t schema.Table) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queries[t.Name]
	if !ok {
		q = r.dialect.UpsertSQL(t)
		r.queries[t.Name] = q
	}
	return q
}

// Tx is a database/sql transaction with prepared upsert statements per table.
type Tx struct {
	r     *Repository
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
	done  bool
}

var _ storage.Tx = (*Tx)(nil)

// Upsert implements storage.Tx.
func (t *Tx) Upsert(ctx context.Context, table schema.Table, values []any) error {
	name := t.r.dialect.Name
	if t.done {
		return fmt.Errorf("%s: upsert %s: transaction finished", name, table.Name)
	}
	if err := storage.CheckValues(table, values); err != nil {
		return fmt.Errorf("%s: upsert %w", name, err)
	}
	stmt, ok := t.stmts[table.Name]
	if !ok {
		var err error
		stmt, err = t.tx.PrepareContext(ctx, t.r.query(table))
		if err != nil {
			return fmt.Errorf("%s: prepare upsert %s: %w", name, table.Name, err)
		}
		t.stmts[table.Name] = stmt
	}
	args := values
	if enc := t.r.dialect.Encode; enc != nil {
		args = make([]any, len(values))
		for i, c := range table.Inputs() {
			args[i] = enc(c, values[i])
		}
	}
	if _, err := stmt.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("%s: upsert %s: %w", name, table.Name, err)
	}
	return nil
}

// Commit implements storage.Tx.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("%s: commit: transaction finished", t.r.dialect.Name)
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", t.r.dialect.Name, err)
	}
	return nil
}

// Rollback implements storage.Tx.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%s: rollback: %w", t.r.dialect.Name, err)
	}
	return nil
}

// Placeholders returns n parameter markers produced by mark(i) for i in 1..n.
func Placeholders(n int, mark func(i int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = mark(i + 1)
	}
	return out
}

// Quoted maps column names through quote.
func Quoted(cols []schema.Column, quote func(string) string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quote(c.Name)
	}
	return out
}
