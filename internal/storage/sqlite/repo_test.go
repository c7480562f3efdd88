package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

/*
Package-level test helpers (TB-aware)
*/

func newMemDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepo(tb testing.TB, tables ...schema.Table) *Repository {
	tb.Helper()
	r := New(newMemDB(tb))
	if err := EnsureTables(context.Background(), r, tables); err != nil {
		tb.Fatalf("EnsureTables: %v", err)
	}
	return r
}

func upsertOne(tb testing.TB, r *Repository, t schema.Table, values ...any) {
	tb.Helper()
	ctx := context.Background()
	tx, err := r.Begin(ctx)
	if err != nil {
		tb.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback(ctx)
	if err := tx.Upsert(ctx, t, values); err != nil {
		tb.Fatalf("Upsert: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		tb.Fatalf("Commit: %v", err)
	}
}

var peopleTable = schema.Table{
	Name: "people",
	Columns: []schema.Column{
		{Name: "source_mongo_id", Type: schema.Text},
		{Name: "name", Type: schema.Text, NotNull: true},
		{Name: "active", Type: schema.Bool, NotNull: true},
		{Name: "visits", Type: schema.Int, NotNull: true},
		{Name: "seen_at", Type: schema.Timestamp},
		{Name: "raw_doc", Type: schema.JSON, NotNull: true},
	},
	Key: []string{"source_mongo_id"},
}

/*
Unit tests
*/

func TestUpsertSQL(t *testing.T) {
	t.Parallel()

	got := UpsertSQL(schema.Archive("mongo_collection_archive"))
	want := `INSERT INTO "mongo_collection_archive" ("collection_name", "source_mongo_id", "payload", "imported_at") ` +
		`VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now')) ` +
		`ON CONFLICT ("collection_name", "source_mongo_id") DO UPDATE SET "payload" = excluded."payload", ` +
		`"imported_at" = strftime('%Y-%m-%dT%H:%M:%fZ','now')`
	if got != want {
		t.Fatalf("UpsertSQL =\n%s\nwant:\n%s", got, want)
	}
}

func TestUpsertSQL_KeyOnly(t *testing.T) {
	t.Parallel()

	got := UpsertSQL(schema.Table{Name: "k", Columns: []schema.Column{{Name: "id"}}, Key: []string{"id"}})
	if want := `INSERT INTO "k" ("id") VALUES (?) ON CONFLICT ("id") DO NOTHING`; got != want {
		t.Fatalf("UpsertSQL = %s, want %s", got, want)
	}
}

func TestSqliteIdent(t *testing.T) {
	t.Parallel()

	if got := sqliteIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("sqliteIdent = %s", got)
	}
}

// TestUpsert_ReplacesNonKeyColumns imports the same identifier twice and
// expects a single row holding the second values.
func TestUpsert_ReplacesNonKeyColumns(t *testing.T) {
	t.Parallel()

	r := newRepo(t, peopleTable)
	seen := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	upsertOne(t, r, peopleTable, "X", "first", true, int64(1), seen, json.RawMessage(`{"v":1}`))
	upsertOne(t, r, peopleTable, "X", "second", false, int64(2), nil, json.RawMessage(`{"v":2}`))

	var (
		n      int
		name   string
		active int64
		visits int64
		seenAt sql.NullString
		raw    string
	)
	row := r.DB().QueryRow(`SELECT COUNT(*) OVER (), name, active, visits, seen_at, raw_doc FROM people`)
	if err := row.Scan(&n, &name, &active, &visits, &seenAt, &raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 1 || name != "second" || active != 0 || visits != 2 || seenAt.Valid || raw != `{"v":2}` {
		t.Fatalf("row = n=%d name=%q active=%d visits=%d seen=%v raw=%s", n, name, active, visits, seenAt, raw)
	}
}

func TestUpsert_TimestampText(t *testing.T) {
	t.Parallel()

	r := newRepo(t, peopleTable)
	seen := time.Date(2024, 1, 15, 13, 0, 0, 0, time.FixedZone("TRT", 3*3600))
	upsertOne(t, r, peopleTable, "T", "n", true, int64(0), seen, json.RawMessage(`{}`))

	var got string
	if err := r.DB().QueryRow(`SELECT seen_at FROM people`).Scan(&got); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got != "2024-01-15T10:00:00+00:00" {
		t.Fatalf("seen_at = %q", got)
	}
}

func TestUpsert_NullKeyInsertsEveryTime(t *testing.T) {
	t.Parallel()

	r := newRepo(t, peopleTable)
	upsertOne(t, r, peopleTable, nil, "a", true, int64(0), nil, json.RawMessage(`{}`))
	upsertOne(t, r, peopleTable, nil, "a", true, int64(0), nil, json.RawMessage(`{}`))

	var n int
	if err := r.DB().QueryRow(`SELECT COUNT(*) FROM people`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}

// TestArchive_ReimportRefreshesImportedAt covers the archive re-import
// scenario: one row, second payload, later imported_at.
func TestArchive_ReimportRefreshesImportedAt(t *testing.T) {
	t.Parallel()

	archive := schema.Archive(schema.DefaultArchiveTable)
	r := newRepo(t, archive)

	read := func() (payload, importedAt string, n int) {
		t.Helper()
		err := r.DB().QueryRow(
			`SELECT payload, imported_at, COUNT(*) OVER () FROM mongo_collection_archive WHERE collection_name = ? AND source_mongo_id = ?`,
			"audit_log", "X",
		).Scan(&payload, &importedAt, &n)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		return
	}

	upsertOne(t, r, archive, "audit_log", "X", json.RawMessage(`{"_id":"X","v":1}`))
	_, first, _ := read()

	time.Sleep(20 * time.Millisecond)
	upsertOne(t, r, archive, "audit_log", "X", json.RawMessage(`{"_id":"X","v":2}`))
	payload, second, n := read()

	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if payload != `{"_id":"X","v":2}` {
		t.Fatalf("payload = %s", payload)
	}
	if !(second > first) {
		t.Fatalf("imported_at not refreshed: first=%s second=%s", first, second)
	}
}

func TestTx_RollbackDiscards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRepo(t, peopleTable)

	tx, err := r.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Upsert(ctx, peopleTable, []any{"R", "n", true, int64(0), nil, json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("second Rollback: %v", err)
	}
	if err := tx.Upsert(ctx, peopleTable, []any{"R"}); err == nil {
		t.Fatalf("expected error upserting on finished tx")
	}

	var n int
	if err := r.DB().QueryRow(`SELECT COUNT(*) FROM people`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0 after rollback", n)
	}
}

func TestTx_ValueCountMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRepo(t, peopleTable)
	tx, err := r.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tx.Rollback(ctx)
	if err := tx.Upsert(ctx, peopleTable, []any{"only-id"}); err == nil {
		t.Fatalf("expected value count error")
	}
}

func TestStorageNew_InMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	if err := storage.EnsureTables(ctx, "sqlite", repo, []schema.Table{schema.Archive("arch")}); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	// Idempotent.
	if err := storage.EnsureTables(ctx, "sqlite", repo, []schema.Table{schema.Archive("arch")}); err != nil {
		t.Fatalf("EnsureTables again: %v", err)
	}
}
