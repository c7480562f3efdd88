// Package postgres implements a Postgres repository using pgx v5. Each record
// is upserted with INSERT ... ON CONFLICT (key) DO UPDATE inside a pgx
// transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gazihan02-sys/sis-tekniktr/internal/ddl"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool

	queries sync.Map // table name -> upsert SQL
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool}, close, nil
}

// DDL is the Postgres CREATE TABLE dialect.
var DDL = ddl.Dialect{
	Quote: pgIdent,
	Types: map[schema.Type]string{
		schema.Text:      "TEXT",
		schema.Bool:      "BOOLEAN",
		schema.Int:       "BIGINT",
		schema.Timestamp: "TIMESTAMPTZ",
		schema.JSON:      "JSONB",
	},
	Now:         "NOW()",
	IfNotExists: true,
}

// UpsertSQL renders INSERT ... ON CONFLICT (key) DO UPDATE for t. Non-key
// columns are taken from EXCLUDED; touch columns are set to NOW().
func UpsertSQL(t schema.Table) string {
	inputs := t.Inputs()
	cols := make([]string, 0, len(t.Columns))
	vals := make([]string, 0, len(t.Columns))
	for i, c := range inputs {
		cols = append(cols, pgIdent(c.Name))
		vals = append(vals, fmt.Sprintf("$%d", i+1))
	}
	sets := updateColumns(t.Updates())
	for _, c := range t.Touch {
		cols = append(cols, pgIdent(c))
		vals = append(vals, "NOW()")
		sets = append(sets, fmt.Sprintf("%s = NOW()", pgIdent(c)))
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		pgFQN(t.Name), strings.Join(cols, ", "), strings.Join(vals, ", "),
		strings.Join(mapIdent(t.Key), ", "), action)
}

// updateColumns generates a list of column updates in the format: "col = EXCLUDED.col"
func updateColumns(cols []schema.Column) []string {
	updates := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(col.Name), pgIdent(col.Name)))
	}
	return updates
}

func (r *Repository) query(t schema.Table) string {
	if q, ok := r.queries.Load(t.Name); ok {
		return q.(string)
	}
	q, _ := r.queries.LoadOrStore(t.Name, UpsertSQL(t))
	return q.(string)
}

// Begin implements storage.Repository.Begin.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", err)
	}
	return &pgTx{r: r, tx: tx}, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", describe(err))
	}
	return nil
}

type pgTx struct {
	r    *Repository
	tx   pgx.Tx
	done bool
}

func (t *pgTx) Upsert(ctx context.Context, table schema.Table, values []any) error {
	if t.done {
		return fmt.Errorf("postgres: upsert %s: transaction finished", table.Name)
	}
	if err := storage.CheckValues(table, values); err != nil {
		return fmt.Errorf("postgres: upsert %w", err)
	}
	if _, err := t.tx.Exec(ctx, t.r.query(table), values...); err != nil {
		return fmt.Errorf("postgres: upsert %s: %w", table.Name, describe(err))
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("postgres: commit: transaction finished")
	}
	t.done = true
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", describe(err))
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

// describe folds the server detail of a PgError into the message.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s, %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.users" to
// "public"."users". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
