package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
)

// DDLBootstrapper creates the given tables if they do not exist, using the
// backend's dialect. Backends register one per storage kind at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository, tables []schema.Table) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTables runs the bootstrapper registered for kind.
func EnsureTables(ctx context.Context, kind string, repo Repository, tables []schema.Table) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, tables)
}

// Execer runs a single statement.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// CreateTables executes the statement produced by build for each table, in
// order. Backends use it to implement their DDLBootstrapper.
func CreateTables(ctx context.Context, repo Execer, tables []schema.Table, build func(schema.Table) (string, error)) error {
	for _, t := range tables {
		q, err := build(t)
		if err != nil {
			return fmt.Errorf("ddl %s: %w", t.Name, err)
		}
		if err := repo.Exec(ctx, q); err != nil {
			return fmt.Errorf("create %s: %w", t.Name, err)
		}
	}
	return nil
}
