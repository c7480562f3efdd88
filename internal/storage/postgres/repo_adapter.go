// Package postgres provides a Postgres-backed storage.Repository implementation.
// This adapter wires the Postgres backend into the storage-agnostic factory by
// registering a constructor at init time. The CLI (cmd/mongoimport) and other
// callers can then obtain a Repository via storage.New(...) without importing
// this package directly.
//
// The adapter also registers a DDL bootstrapper so that callers can create
// the destination tables based only on storage.Kind.
package postgres

import (
	"context"

	"github.com/gazihan02-sys/sis-tekniktr/internal/ddl"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Ensure wrappedRepo satisfies storage.Repository at compile time.
var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository, tables []schema.Table) error {
		return EnsureTables(ctx, repo, tables)
	})
}

// EnsureTables creates any missing tables.
func EnsureTables(ctx context.Context, repo storage.Execer, tables []schema.Table) error {
	return storage.CreateTables(ctx, repo, tables, func(t schema.Table) (string, error) {
		return ddl.CreateTableSQL(t, DDL)
	})
}
