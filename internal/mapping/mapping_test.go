package mapping

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
	"github.com/gazihan02-sys/sis-tekniktr/internal/document/documenttest"
	"github.com/gazihan02-sys/sis-tekniktr/internal/normalize"
)

const testID = "507f191e810c19729de860ea"

func oid(t testing.TB) document.ObjectID {
	t.Helper()
	id, ok := document.ObjectIDFromHex(testID)
	if !ok {
		t.Fatalf("bad object id")
	}
	return id
}

func mustMap(t testing.TB, name string, d document.Document) Row {
	t.Helper()
	c, ok := Lookup(name)
	if !ok {
		t.Fatalf("Lookup(%q): not registered", name)
	}
	row, err := c.Map(d)
	if err != nil {
		t.Fatalf("Map(%s): %v", name, err)
	}
	return row
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	want := []string{"users", "musteri_kabul", "montaj_kayitlari", "sms_queue", "delete_otp_requests"}
	known := Known()
	if len(known) != len(want) {
		t.Fatalf("Known() has %d collections, want %d", len(known), len(want))
	}
	for i, c := range known {
		if c.Name != want[i] || c.Kind.String() != want[i] || c.Table.Name != want[i] {
			t.Errorf("Known()[%d] = %s/%s/%s, want %s", i, c.Name, c.Kind, c.Table.Name, want[i])
		}
		if err := c.Table.Validate(); err != nil {
			t.Errorf("%s table: %v", c.Name, err)
		}
		if c.Table.Columns[len(c.Table.Columns)-1].Name != "raw_doc" {
			t.Errorf("%s table: last column is not raw_doc", c.Name)
		}
	}
	if _, ok := Lookup("audit_log"); ok {
		t.Fatalf("Lookup(audit_log): want unregistered")
	}
	if len(Tables()) != len(want) {
		t.Fatalf("Tables() length mismatch")
	}
}

func TestMappersCoverTableColumns(t *testing.T) {
	t.Parallel()

	for _, c := range Known() {
		row, err := c.Map(documenttest.D("_id", oid(t)))
		if err != nil {
			t.Fatalf("%s: Map: %v", c.Name, err)
		}
		if len(row) != len(c.Table.Inputs()) {
			t.Errorf("%s: row has %d columns, table has %d", c.Name, len(row), len(c.Table.Inputs()))
		}
		for _, col := range c.Table.Inputs() {
			if _, ok := row[col.Name]; !ok {
				t.Errorf("%s: row missing column %s", c.Name, col.Name)
			}
		}
	}
}

func TestMusteriKabul_Defaults(t *testing.T) {
	t.Parallel()

	row := mustMap(t, "musteri_kabul", documenttest.D(
		"_id", oid(t),
		"ad_soyad", document.String("Ayşe Yılmaz"),
		"not", document.String("ekran kırık"),
	))
	if row["fiyat_verilecek"] != false {
		t.Errorf("fiyat_verilecek = %#v, want false", row["fiyat_verilecek"])
	}
	if row["status"] != "MÜŞTERI_KABUL" {
		t.Errorf("status = %#v, want MÜŞTERI_KABUL", row["status"])
	}
	if row["not_field"] != "ekran kırık" {
		t.Errorf("not_field = %#v", row["not_field"])
	}
	if row["servis_tipi"] != nil || row["created_at"] != nil {
		t.Errorf("nullable columns not nil: servis_tipi=%#v created_at=%#v", row["servis_tipi"], row["created_at"])
	}
	if row["telefon"] != "" {
		t.Errorf("telefon = %#v, want empty string", row["telefon"])
	}
	if row["source_mongo_id"] != testID {
		t.Errorf("source_mongo_id = %#v", row["source_mongo_id"])
	}
}

func TestSMSQueue_Attempts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempts document.Value
		want     int64
	}{
		{document.String("3"), 3},
		{document.String("abc"), 0},
		{document.Int(5), 5},
		{document.Float(2.7), 2},
		{nil, 0},
	}
	for _, tt := range tests {
		row := mustMap(t, "sms_queue", documenttest.D("_id", oid(t), "attempts", tt.attempts))
		if row["attempts"] != tt.want {
			t.Errorf("attempts %#v -> %#v, want %d", tt.attempts, row["attempts"], tt.want)
		}
	}
}

func TestSMSQueue_Fields(t *testing.T) {
	t.Parallel()

	customer, _ := document.ObjectIDFromHex("65a5b8f0c2a4e1d3b7f90123")
	due := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	row := mustMap(t, "sms_queue", documenttest.D(
		"_id", oid(t),
		"customer_id", customer,
		"status_id", document.String("2"),
		"phone", document.String("05321234567"),
		"due_at", document.String("2024-01-15T13:00:00+03:00"),
		"sent", document.String("yes"),
		"sent_at", document.String("not a time"),
	))
	want := Row{
		"source_mongo_id":   testID,
		"customer_mongo_id": "65a5b8f0c2a4e1d3b7f90123",
		"status_id":         int64(2),
		"phone":             "05321234567",
		"message":           nil,
		"due_at":            due,
		"created_at":        nil,
		"sent":              true,
		"sent_at":           nil,
		"attempts":          int64(0),
		"last_error":        nil,
		"provider_message":  nil,
	}
	delete(row, "raw_doc")
	if diff := cmp.Diff(want, row); diff != "" {
		t.Fatalf("sms_queue row mismatch (-want +got):\n%s", diff)
	}
}

func TestUsers_RawDocAndNullable(t *testing.T) {
	t.Parallel()

	created := time.Date(2023, 5, 1, 9, 30, 0, 0, time.UTC)
	d := documenttest.D(
		"_id", oid(t),
		"username", document.String("teknik1"),
		"level", document.Int(2),
		"created_at", document.DateTimeOf(created),
	)
	row := mustMap(t, "users", d)
	if row["level"] != "2" {
		t.Errorf("level = %#v, want \"2\"", row["level"])
	}
	if row["theme_color"] != nil {
		t.Errorf("theme_color = %#v, want nil", row["theme_color"])
	}
	if got, _ := row["created_at"].(time.Time); !got.Equal(created) {
		t.Errorf("created_at = %#v, want %v", row["created_at"], created)
	}
	want := `{"_id":"507f191e810c19729de860ea","username":"teknik1","level":2,"created_at":"2023-05-01T09:30:00+00:00"}`
	if got := string(row["raw_doc"].(json.RawMessage)); got != want {
		t.Errorf("raw_doc = %s, want %s", got, want)
	}
}

func TestMontajKayitlari_Images(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  document.Document
		want string
	}{
		{"absent", documenttest.D("_id", oid(t)), `[]`},
		{"present", documenttest.D("_id", oid(t), "kurulum_resimleri", document.Array{document.String("a.jpg")}), `["a.jpg"]`},
		{"null", documenttest.D("_id", oid(t), "kurulum_resimleri", nil), `null`},
	}
	for _, tt := range tests {
		row := mustMap(t, "montaj_kayitlari", tt.doc)
		if got := string(row["kurulum_resimleri"].(json.RawMessage)); got != tt.want {
			t.Errorf("%s: kurulum_resimleri = %s, want %s", tt.name, got, tt.want)
		}
		if row["kapatildi"] != false || row["servis_tipi"] != "" {
			t.Errorf("%s: defaults not applied: %#v %#v", tt.name, row["kapatildi"], row["servis_tipi"])
		}
	}
}

func TestDeleteOTPRequests(t *testing.T) {
	t.Parallel()

	resource, _ := document.ObjectIDFromHex("65a5b8f0c2a4e1d3b7f90123")
	row := mustMap(t, "delete_otp_requests", documenttest.D(
		"_id", oid(t),
		"otp_code", document.Int(123456),
		"resource_id", resource,
		"used", document.Int(1),
		"expires_at", document.String("2024-01-15T10:05:00Z"),
	))
	if row["otp_code"] != "123456" || row["resource_mongo_id"] != "65a5b8f0c2a4e1d3b7f90123" || row["used"] != true {
		t.Fatalf("unexpected row: %#v", row)
	}
	if row["action"] != nil || row["phone"] != nil {
		t.Fatalf("nullable columns not nil: %#v", row)
	}
}

func TestMissingIDIsNull(t *testing.T) {
	t.Parallel()

	row := mustMap(t, "users", documenttest.D("username", document.String("x")))
	if row["source_mongo_id"] != nil {
		t.Fatalf("source_mongo_id = %#v, want nil", row["source_mongo_id"])
	}
}

func TestMap_NotSerializable(t *testing.T) {
	t.Parallel()

	c, _ := Lookup("users")
	_, err := c.Map(documenttest.D("_id", oid(t), "pattern", document.Unsupported{Type: "regex"}))
	var nse *normalize.NotSerializableError
	if !errors.As(err, &nse) || nse.Path != "pattern" {
		t.Fatalf("err = %v, want *NotSerializableError at pattern", err)
	}
}

func TestValuesOrder(t *testing.T) {
	t.Parallel()

	c, _ := Lookup("users")
	row := mustMap(t, "users", documenttest.D("_id", oid(t), "username", document.String("u")))
	vals := c.Values(row)
	if len(vals) != len(c.Table.Columns) {
		t.Fatalf("Values len = %d, want %d", len(vals), len(c.Table.Columns))
	}
	if vals[0] != testID || vals[2] != "u" {
		t.Fatalf("Values order wrong: %#v", vals)
	}
}

func TestArchiveRow(t *testing.T) {
	t.Parallel()

	row, err := ArchiveRow("audit_log", documenttest.D("_id", document.String("X"), "n", document.Int(1)))
	if err != nil {
		t.Fatalf("ArchiveRow: %v", err)
	}
	if row["collection_name"] != "audit_log" || row["source_mongo_id"] != "X" {
		t.Fatalf("unexpected archive row: %#v", row)
	}
	if got := string(row["payload"].(json.RawMessage)); got != `{"_id":"X","n":1}` {
		t.Fatalf("payload = %s", got)
	}
}
