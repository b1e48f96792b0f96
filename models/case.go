package models

import (
	"encoding/json"
	"time"
)

/************************************************
/**** MARK: CASE STATUS ****/
/************************************************/
const CASE_STATUS_OPEN = "open"
const CASE_STATUS_PENDING_VENDOR = "pending_vendor"
const CASE_STATUS_READY_REVIEW = "ready_review"
const CASE_STATUS_CLOSED = "closed"

/************************************************
/**** MARK: CASE METADATA KEYS ****/
/************************************************/
const META_FINGERPRINT = "sales_order_fingerprint"
const META_TOTAL_CENTS = "sales_order_total_cents"
const META_CLIENT_KEY = "sales_order_client_key"
const META_COUNTERPART_PHONE = "counterpart_phone"
const META_CUSTOMER_PHONE = "customer_phone"
const META_SENDER_IS_VENDOR = "sender_is_vendor"
const META_ORIGIN_CHANNEL = "origin_channel"
const META_CONTACT_LABEL = "contact_label"

// Case é o agregado central: uma conversa/pedido sob uma jornada.
// State precisa pertencer ao conjunto de estados da jornada. DeletedAt dá o
// soft delete do gorm (merge de duplicados marca o perdedor como deletado).
type Case struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID   int64      `gorm:"not null;index" json:"tenant_id"`
	JourneyID  int64      `gorm:"not null;index" json:"journey_id"`
	State      string     `gorm:"not null" json:"state"`
	Status     string     `gorm:"not null;default:'open';index" json:"status"`
	CustomerID *int64     `gorm:"index" json:"customer_id"`
	VendorID   *int64     `gorm:"index" json:"vendor_id"`
	Metadata   string     `gorm:"type:text" json:"metadata"` // bag JSON livre, ver META_*
	IsChat     bool       `gorm:"column:is_chat;not null;default:false" json:"is_chat"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
	DeletedAt  *time.Time `sql:"index" json:"deleted_at"`
}

// MetaGet lê uma chave do bag de metadata. Bag vazio/corrompido lê como vazio.
func (k *Case) MetaGet(key string) string {
	if k.Metadata == "" {
		return ""
	}
	var bag map[string]string
	if err := json.Unmarshal([]byte(k.Metadata), &bag); err != nil {
		return ""
	}
	return bag[key]
}

// MetaSet grava uma chave no bag e devolve o JSON atualizado (o caller persiste).
func (k *Case) MetaSet(key, value string) {
	bag := map[string]string{}
	if k.Metadata != "" {
		_ = json.Unmarshal([]byte(k.Metadata), &bag)
	}
	bag[key] = value
	b, _ := json.Marshal(bag)
	k.Metadata = string(b)
}
