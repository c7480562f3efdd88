package file

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadList_Basic(t *testing.T) {
	t.Parallel()

	content := `
# comment line
users
   # indented comment
sms_queue # retried nightly

   musteri_kabul
`
	path := writeTempFile(t, content)

	got, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList error: %v", err)
	}

	want := []string{
		"users",
		"sms_queue",
		"musteri_kabul",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadList(%q) = %#v, want %#v", path, got, want)
	}
}

func TestReadList_EmptyFile(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "")
	got, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestReadList_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := ReadList("does-not-exist-12345.txt")
	if err == nil {
		t.Fatalf("expected error for missing file, got nil")
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	got := SplitList(" users, sms_queue,,montaj_kayitlari  delete_otp_requests ")
	want := []string{"users", "sms_queue", "montaj_kayitlari", "delete_otp_requests"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitList = %#v, want %#v", got, want)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("SplitList(\"\") = %#v, want empty", got)
	}
}

func TestMergeOnly(t *testing.T) {
	t.Parallel()

	path := writeTempFile(t, "sms_queue\nusers\naudit_logs\n")
	got, err := MergeOnly([]string{"users", "sms_queue", "users"}, path)
	if err != nil {
		t.Fatalf("MergeOnly: %v", err)
	}
	want := []string{"users", "sms_queue", "audit_logs"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeOnly = %#v, want %#v", got, want)
	}

	if _, err := MergeOnly(nil, "does-not-exist-12345.txt"); err == nil {
		t.Fatalf("expected error for missing list file")
	}
	if got, err := MergeOnly(nil, ""); err != nil || len(got) != 0 {
		t.Fatalf("MergeOnly(nil, \"\") = %#v, %v", got, err)
	}
}
