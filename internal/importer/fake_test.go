package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// fakeRepo records transaction activity as a flat op log, e.g.
// "begin", "upsert users", "commit".
type fakeRepo struct {
	mu  sync.Mutex
	ops []string

	// rows holds committed values per table.
	rows map[string][][]any

	failUpsertAt int // 1-based; 0 never fails
	upserts      int
	failCommit   bool
	failBegin    bool
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[string][][]any{}} }

func (r *fakeRepo) log(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *fakeRepo) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *fakeRepo) Begin(ctx context.Context) (storage.Tx, error) {
	if r.failBegin {
		return nil, errors.New("begin refused")
	}
	r.log("begin")
	return &fakeTx{r: r}, nil
}

func (r *fakeRepo) Exec(ctx context.Context, sql string) error { return nil }
func (r *fakeRepo) Close()                                     {}

type fakeTx struct {
	r       *fakeRepo
	pending map[string][][]any
	done    bool
}

func (t *fakeTx) Upsert(ctx context.Context, table schema.Table, values []any) error {
	if err := storage.CheckValues(table, values); err != nil {
		return err
	}
	t.r.mu.Lock()
	t.r.upserts++
	n := t.r.upserts
	t.r.mu.Unlock()
	if t.r.failUpsertAt > 0 && n == t.r.failUpsertAt {
		return fmt.Errorf("upsert %s: constraint violation", table.Name)
	}
	if t.pending == nil {
		t.pending = map[string][][]any{}
	}
	t.pending[table.Name] = append(t.pending[table.Name], values)
	t.r.log("upsert " + table.Name)
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.r.failCommit {
		return errors.New("commit refused")
	}
	t.done = true
	t.r.mu.Lock()
	for k, v := range t.pending {
		t.r.rows[k] = append(t.r.rows[k], v...)
	}
	t.r.mu.Unlock()
	t.r.log("commit")
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.r.log("rollback")
	return nil
}
