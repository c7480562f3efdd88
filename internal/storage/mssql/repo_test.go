package mssql

import (
	"context"
	"strings"
	"testing"

	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
	"github.com/gazihan02-sys/sis-tekniktr/internal/storage"
)

// TestMsIdent verifies that msIdent properly brackets SQL Server identifiers
// and escapes closing brackets to avoid syntax errors and injection issues.
func TestMsIdent(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"simple", "[simple]"},
		{"dbo", "[dbo]"},
		{"brack]et", "[brack]]et]"},
		{`weird]]name`, `[weird]]]]name]`},
	}
	for _, tc := range cases {
		if got := msIdent(tc.in); got != tc.want {
			t.Fatalf("msIdent(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

// TestMsFQN verifies that msFQN correctly quotes schema-qualified names using
// bracketed identifier segments, preserving multi-part names.
func TestMsFQN(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"table", "[table]"},
		{"dbo.table", "[dbo].[table]"},
		{"sales.q4.table", "[sales].[q4].[table]"},
	}
	for _, tc := range cases {
		if got := msFQN(tc.in); got != tc.want {
			t.Fatalf("msFQN(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildMatchCondition(t *testing.T) {
	cases := []struct {
		keys []string
		want string
	}{
		{[]string{"source_mongo_id"}, "T.[source_mongo_id] = S.[source_mongo_id]"},
		{[]string{"collection_name", "source_mongo_id"}, "T.[collection_name] = S.[collection_name] AND T.[source_mongo_id] = S.[source_mongo_id]"},
	}
	for _, tc := range cases {
		if got := buildMatchCondition(tc.keys); got != tc.want {
			t.Fatalf("buildMatchCondition(%v) = %q; want %q", tc.keys, got, tc.want)
		}
	}
}

func TestUpsertSQL_Archive(t *testing.T) {
	got := UpsertSQL(schema.Archive("dbo.mongo_collection_archive"))
	want := "MERGE INTO [dbo].[mongo_collection_archive] WITH (HOLDLOCK) AS T " +
		"USING (SELECT @p1 AS [collection_name], @p2 AS [source_mongo_id], @p3 AS [payload]) AS S " +
		"ON T.[collection_name] = S.[collection_name] AND T.[source_mongo_id] = S.[source_mongo_id] " +
		"WHEN MATCHED THEN UPDATE SET T.[payload] = S.[payload], T.[imported_at] = SYSUTCDATETIME() " +
		"WHEN NOT MATCHED THEN INSERT ([collection_name], [source_mongo_id], [payload], [imported_at]) " +
		"VALUES (S.[collection_name], S.[source_mongo_id], S.[payload], SYSUTCDATETIME());"
	if got != want {
		t.Fatalf("UpsertSQL =\n%s\nwant:\n%s", got, want)
	}
}

func TestCreateTableSQL_Guarded(t *testing.T) {
	got, err := CreateTableSQL(schema.Archive("mongo_collection_archive"))
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	for _, part := range []string{
		"IF OBJECT_ID(N'mongo_collection_archive', N'U') IS NULL\nCREATE TABLE [mongo_collection_archive] (",
		"[collection_name] NVARCHAR(200) NOT NULL",
		"[payload] NVARCHAR(MAX) NOT NULL",
		"[imported_at] DATETIMEOFFSET(6) NOT NULL DEFAULT SYSUTCDATETIME()",
		"UNIQUE ([collection_name], [source_mongo_id])",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("CreateTableSQL missing %q in:\n%s", part, got)
		}
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://user:pa ss@host:notaport"}); err == nil {
		t.Fatalf("expected DSN error")
	}
}

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var closed bool
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		return &Repository{}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://localhost"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if _, ok := repo.(*wrappedRepo); !ok {
		t.Fatalf("storage.New() type = %T, want *wrappedRepo", repo)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not invoke closeFn")
	}
}
