// Package mapping holds the closed registry of collections with typed
// destination tables and the pure functions that map a document to a row.
package mapping

import (
	"encoding/json"

	"github.com/gazihan02-sys/sis-tekniktr/internal/coerce"
	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
	"github.com/gazihan02-sys/sis-tekniktr/internal/normalize"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
)

// Row is a mapped record: column name -> value. Values are string, bool,
// int64, time.Time (UTC), json.RawMessage or nil.
type Row map[string]any

// Kind enumerates the collections with a typed mapping.
type Kind int

const (
	Users Kind = iota + 1
	MusteriKabul
	MontajKayitlari
	SMSQueue
	DeleteOTPRequests
)

func (k Kind) String() string {
	switch k {
	case Users:
		return "users"
	case MusteriKabul:
		return "musteri_kabul"
	case MontajKayitlari:
		return "montaj_kayitlari"
	case SMSQueue:
		return "sms_queue"
	case DeleteOTPRequests:
		return "delete_otp_requests"
	default:
		return "unknown"
	}
}

// Collection binds a source collection to its destination table.
type Collection struct {
	Kind  Kind
	Name  string
	Table schema.Table

	mapFn func(document.Document) (Row, error)
}

// Map converts d into a row for c.Table. The only failure is a document that
// cannot be normalized for raw_doc.
func (c Collection) Map(d document.Document) (Row, error) { return c.mapFn(d) }

// Values orders row by the table's input columns.
func (c Collection) Values(row Row) []any { return Values(c.Table, row) }

// Values orders row by t's input columns. Missing columns are nil.
func Values(t schema.Table, row Row) []any {
	cols := t.Inputs()
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = row[c.Name]
	}
	return out
}

var (
	registry = []Collection{
		{Kind: Users, Name: Users.String(), Table: usersTable, mapFn: mapUsers},
		{Kind: MusteriKabul, Name: MusteriKabul.String(), Table: musteriKabulTable, mapFn: mapMusteriKabul},
		{Kind: MontajKayitlari, Name: MontajKayitlari.String(), Table: montajKayitlariTable, mapFn: mapMontajKayitlari},
		{Kind: SMSQueue, Name: SMSQueue.String(), Table: smsQueueTable, mapFn: mapSMSQueue},
		{Kind: DeleteOTPRequests, Name: DeleteOTPRequests.String(), Table: deleteOTPRequestsTable, mapFn: mapDeleteOTPRequests},
	}
	byName = func() map[string]Collection {
		m := make(map[string]Collection, len(registry))
		for _, c := range registry {
			m[c.Name] = c
		}
		return m
	}()
)

// Lookup resolves a collection name to its typed mapping.
func Lookup(name string) (Collection, bool) {
	c, ok := byName[name]
	return c, ok
}

// Known lists the registry in a stable order.
func Known() []Collection {
	out := make([]Collection, len(registry))
	copy(out, registry)
	return out
}

// Tables returns the typed destination tables in registry order.
func Tables() []schema.Table {
	out := make([]schema.Table, len(registry))
	for i, c := range registry {
		out[i] = c.Table
	}
	return out
}

// ArchiveRow maps a document of an unregistered collection to an archive row.
func ArchiveRow(collection string, d document.Document) (Row, error) {
	payload, err := normalize.JSON(d)
	if err != nil {
		return nil, err
	}
	return Row{
		"collection_name": collection,
		"source_mongo_id": id(d, "_id"),
		"payload":         payload,
	}, nil
}

// field readers

func id(d document.Document, key string) any {
	return optText(d, key)
}

func text(d document.Document, key, def string) string {
	return coerce.Text(d.Get(key), def)
}

func optText(d document.Document, key string) any {
	if s, ok := coerce.OptionalText(d.Get(key)); ok {
		return s
	}
	return nil
}

func ts(d document.Document, key string) any {
	if t, ok := coerce.Time(d.Get(key)); ok {
		return t
	}
	return nil
}

func flag(d document.Document, key string) bool {
	return coerce.Bool(d.Get(key), false)
}

func num(d document.Document, key string) int64 {
	return coerce.Int(d.Get(key), 0)
}

func rawDoc(d document.Document) (json.RawMessage, error) {
	return normalize.JSON(d)
}
