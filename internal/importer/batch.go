package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// batch owns at most one open transaction. Callers must end every path with
// commit or abort; abort is safe to defer after commit.
type batch struct {
	repo  storage.Repository
	every int
	log   zerolog.Logger

	tx      storage.Tx
	pending int64

	commits   int64
	committed int64
}

func newBatch(repo storage.Repository, every int, log zerolog.Logger) *batch {
	return &batch{repo: repo, every: every, log: log}
}

// upsert writes one row, opening a transaction on demand. When every > 0 the
// batch commits as soon as every rows are pending.
func (b *batch) upsert(ctx context.Context, t schema.Table, values []any) error {
	if b.tx == nil {
		tx, err := b.repo.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		b.tx = tx
	}
	if err := b.tx.Upsert(ctx, t, values); err != nil {
		return err
	}
	b.pending++
	if b.every > 0 && b.pending >= int64(b.every) {
		return b.commit(ctx)
	}
	return nil
}

// commit commits the open transaction, if any.
func (b *batch) commit(ctx context.Context) error {
	if b.tx == nil {
		return nil
	}
	tx, n := b.tx, b.pending
	b.tx, b.pending = nil, 0
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	b.commits++
	b.committed += n
	b.log.Debug().Int64("rows", n).Int64("commits", b.commits).Msg("importer: committed batch")
	return nil
}

// abort rolls back the open transaction, if any. Rollback errors are joined
// onto cause so the original failure is never masked.
func (b *batch) abort(ctx context.Context, cause error) error {
	if b.tx == nil {
		return cause
	}
	tx, n := b.tx, b.pending
	b.tx, b.pending = nil, 0
	// The caller's ctx may already be canceled; rollback must still reach
	// the backend.
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		cause = errors.Join(cause, fmt.Errorf("rollback: %w", err))
	}
	if cause != nil {
		b.log.Warn().Int64("rows", n).Err(cause).Msg("importer: rolled back batch")
	}
	return cause
}
