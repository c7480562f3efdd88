package mapping

import (
	"encoding/json"

	"github.com/gazihan02-sys/sis-tekniktr/internal/document"
	"github.com/gazihan02-sys/sis-tekniktr/internal/normalize"
	"github.com/gazihan02-sys/sis-tekniktr/internal/schema"
)

// DefaultMusteriKabulStatus is stored when a musteri_kabul record has no
// status.
const DefaultMusteriKabulStatus = "MÜŞTERI_KABUL"

var sourceKey = []string{"source_mongo_id"}

func textCol(name string) schema.Column { return schema.Column{Name: name, Type: schema.Text, NotNull: true} }
func optCol(name string) schema.Column  { return schema.Column{Name: name, Type: schema.Text} }
func boolCol(name string) schema.Column { return schema.Column{Name: name, Type: schema.Bool, NotNull: true} }
func intCol(name string) schema.Column  { return schema.Column{Name: name, Type: schema.Int, NotNull: true} }
func tsCol(name string) schema.Column   { return schema.Column{Name: name, Type: schema.Timestamp} }
func jsonCol(name string) schema.Column { return schema.Column{Name: name, Type: schema.JSON, NotNull: true} }
func idCol() schema.Column              { return optCol("source_mongo_id") }

var usersTable = schema.Table{
	Name: "users",
	Columns: []schema.Column{
		idCol(),
		textCol("ad_soyad"),
		textCol("username"),
		textCol("password"),
		optCol("theme_color"),
		optCol("level"),
		tsCol("created_at"),
		jsonCol("raw_doc"),
	},
	Key: sourceKey,
}

func mapUsers(d document.Document) (Row, error) {
	raw, err := rawDoc(d)
	if err != nil {
		return nil, err
	}
	return Row{
		"source_mongo_id": id(d, "_id"),
		"ad_soyad":        text(d, "ad_soyad", ""),
		"username":        text(d, "username", ""),
		"password":        text(d, "password", ""),
		"theme_color":     optText(d, "theme_color"),
		"level":           optText(d, "level"),
		"created_at":      ts(d, "created_at"),
		"raw_doc":         raw,
	}, nil
}

var musteriKabulTable = schema.Table{
	Name: "musteri_kabul",
	Columns: []schema.Column{
		idCol(),
		textCol("ad_soyad"),
		textCol("telefon"),
		textCol("marka_model"),
		optCol("servis_tipi"),
		textCol("aksesuarlar"),
		textCol("musteri_sikayeti"),
		optCol("not_field"),
		optCol("teknisyen_aciklamasi"),
		optCol("tamir_fisi_no"),
		optCol("sirala_dosya_url"),
		optCol("belge_f"),
		optCol("belge_g"),
		optCol("belge_u"),
		optCol("belge_a"),
		textCol("status"),
		boolCol("fiyat_verilecek"),
		boolCol("sms_gonderildi"),
		optCol("sms_mesaj"),
		tsCol("created_at"),
		tsCol("updated_at"),
		jsonCol("raw_doc"),
	},
	Key: sourceKey,
}

func mapMusteriKabul(d document.Document) (Row, error) {
	raw, err := rawDoc(d)
	if err != nil {
		return nil, err
	}
	return Row{
		"source_mongo_id":      id(d, "_id"),
		"ad_soyad":             text(d, "ad_soyad", ""),
		"telefon":              text(d, "telefon", ""),
		"marka_model":          text(d, "marka_model", ""),
		"servis_tipi":          optText(d, "servis_tipi"),
		"aksesuarlar":          text(d, "aksesuarlar", ""),
		"musteri_sikayeti":     text(d, "musteri_sikayeti", ""),
		"not_field":            optText(d, "not"),
		"teknisyen_aciklamasi": optText(d, "teknisyen_aciklamasi"),
		"tamir_fisi_no":        optText(d, "tamir_fisi_no"),
		"sirala_dosya_url":     optText(d, "sirala_dosya_url"),
		"belge_f":              optText(d, "belge_f"),
		"belge_g":              optText(d, "belge_g"),
		"belge_u":              optText(d, "belge_u"),
		"belge_a":              optText(d, "belge_a"),
		"status":               text(d, "status", DefaultMusteriKabulStatus),
		"fiyat_verilecek":      flag(d, "fiyat_verilecek"),
		"sms_gonderildi":       flag(d, "sms_gonderildi"),
		"sms_mesaj":            optText(d, "sms_mesaj"),
		"created_at":           ts(d, "created_at"),
		"updated_at":           ts(d, "updated_at"),
		"raw_doc":              raw,
	}, nil
}

var montajKayitlariTable = schema.Table{
	Name: "montaj_kayitlari",
	Columns: []schema.Column{
		idCol(),
		optCol("rnu_is_emri_no"),
		textCol("ad_soyad"),
		textCol("model"),
		textCol("telefon"),
		optCol("adres"),
		textCol("servis_tipi"),
		optCol("atanan_kullanici_username"),
		boolCol("kapatildi"),
		tsCol("kapatildi_at"),
		optCol("kurulum_tipi"),
		jsonCol("kurulum_resimleri"),
		optCol("belge_f"),
		tsCol("created_at"),
		tsCol("updated_at"),
		jsonCol("raw_doc"),
	},
	Key: sourceKey,
}

func mapMontajKayitlari(d document.Document) (Row, error) {
	raw, err := rawDoc(d)
	if err != nil {
		return nil, err
	}
	images := json.RawMessage(`[]`)
	if v, ok := d.Lookup("kurulum_resimleri"); ok {
		if images, err = normalize.ValueJSON(v); err != nil {
			return nil, err
		}
	}
	return Row{
		"source_mongo_id":           id(d, "_id"),
		"rnu_is_emri_no":            optText(d, "rnu_is_emri_no"),
		"ad_soyad":                  text(d, "ad_soyad", ""),
		"model":                     text(d, "model", ""),
		"telefon":                   text(d, "telefon", ""),
		"adres":                     optText(d, "adres"),
		"servis_tipi":               text(d, "servis_tipi", ""),
		"atanan_kullanici_username": optText(d, "atanan_kullanici_username"),
		"kapatildi":                 flag(d, "kapatildi"),
		"kapatildi_at":              ts(d, "kapatildi_at"),
		"kurulum_tipi":              optText(d, "kurulum_tipi"),
		"kurulum_resimleri":         images,
		"belge_f":                   optText(d, "belge_f"),
		"created_at":                ts(d, "created_at"),
		"updated_at":                ts(d, "updated_at"),
		"raw_doc":                   raw,
	}, nil
}

var smsQueueTable = schema.Table{
	Name: "sms_queue",
	Columns: []schema.Column{
		idCol(),
		optCol("customer_mongo_id"),
		intCol("status_id"),
		optCol("phone"),
		optCol("message"),
		tsCol("due_at"),
		tsCol("created_at"),
		boolCol("sent"),
		tsCol("sent_at"),
		intCol("attempts"),
		optCol("last_error"),
		optCol("provider_message"),
		jsonCol("raw_doc"),
	},
	Key: sourceKey,
}

func mapSMSQueue(d document.Document) (Row, error) {
	raw, err := rawDoc(d)
	if err != nil {
		return nil, err
	}
	return Row{
		"source_mongo_id":   id(d, "_id"),
		"customer_mongo_id": id(d, "customer_id"),
		"status_id":         num(d, "status_id"),
		"phone":             optText(d, "phone"),
		"message":           optText(d, "message"),
		"due_at":            ts(d, "due_at"),
		"created_at":        ts(d, "created_at"),
		"sent":              flag(d, "sent"),
		"sent_at":           ts(d, "sent_at"),
		"attempts":          num(d, "attempts"),
		"last_error":        optText(d, "last_error"),
		"provider_message":  optText(d, "provider_message"),
		"raw_doc":           raw,
	}, nil
}

var deleteOTPRequestsTable = schema.Table{
	Name: "delete_otp_requests",
	Columns: []schema.Column{
		idCol(),
		optCol("otp_code"),
		optCol("action"),
		textCol("resource_mongo_id"),
		optCol("phone"),
		boolCol("used"),
		tsCol("created_at"),
		tsCol("expires_at"),
		jsonCol("raw_doc"),
	},
	Key: sourceKey,
}

func mapDeleteOTPRequests(d document.Document) (Row, error) {
	raw, err := rawDoc(d)
	if err != nil {
		return nil, err
	}
	return Row{
		"source_mongo_id":   id(d, "_id"),
		"otp_code":          optText(d, "otp_code"),
		"action":            optText(d, "action"),
		"resource_mongo_id": text(d, "resource_id", ""),
		"phone":             optText(d, "phone"),
		"used":              flag(d, "used"),
		"created_at":        ts(d, "created_at"),
		"expires_at":        ts(d, "expires_at"),
		"raw_doc":           raw,
	}, nil
}
