// Package storage contains the storage-agnostic contracts used by the import
// pipeline and a small factory that backends register into at init time.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
)

// Config selects and configures a backend.
type Config struct {
	Kind string // postgres | sqlite | mssql | mysql
	DSN  string
}

// Repository is an open destination store.
type Repository interface {
	// Begin opens a transaction. Upserts are only visible after Commit.
	Begin(ctx context.Context) (Tx, error)
	// Exec runs a single statement outside any transaction (typically DDL).
	Exec(ctx context.Context, sql string) error
	Close()
}

// Tx is a single destination transaction.
type Tx interface {
	// Upsert inserts a row into t or, when a row with the same key exists,
	// overwrites every non-key column. values are aligned to t.Inputs().
	// Touch columns are set to the current time on both paths.
	Upsert(ctx context.Context, t schema.Table, values []any) error
	Commit(ctx context.Context) error
	// Rollback discards the transaction. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// again replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CheckValues verifies that values line up with t's input columns.
func CheckValues(t schema.Table, values []any) error {
	if n := len(t.Inputs()); len(values) != n {
		return fmt.Errorf("%s: got %d values for %d columns", t.Name, len(values), n)
	}
	return nil
}
