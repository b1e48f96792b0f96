package models

import "time"

/************************************************
/**** MARK: MESSAGE DIRECTION ****/
/************************************************/
const MESSAGE_DIRECTION_INBOUND = "inbound"
const MESSAGE_DIRECTION_OUTBOUND = "outbound"

/************************************************
/**** MARK: MESSAGE TYPES ****/
/************************************************/
const MESSAGE_TYPE_TEXT = "text"
const MESSAGE_TYPE_IMAGE = "image"
const MESSAGE_TYPE_AUDIO = "audio"
const MESSAGE_TYPE_LOCATION = "location"

// ChannelMessage é o registro imutável de um evento normalizado do canal.
// Nunca é alterado depois do insert, com uma exceção: o backfill de Transcript
// quando o OCR/transcrição de mídia termina.
//
// O unique index em (instance_id, direction, correlation_id) transforma a
// checagem de idempotência em constraint de banco: a segunda entrega do mesmo
// evento falha no insert e vira resposta duplicate:true.
type ChannelMessage struct {
	ID            int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID      int64      `gorm:"not null;index" json:"tenant_id"`
	InstanceID    int64      `gorm:"not null;unique_index:ux_msg_idem" json:"instance_id"`
	CaseID        *int64     `gorm:"index" json:"case_id"`
	Direction     string     `gorm:"not null;unique_index:ux_msg_idem" json:"direction"`
	Type          string     `gorm:"not null;default:'text'" json:"type"`
	FromAddr      string     `gorm:"column:from_addr;not null;index" json:"from_addr"`
	ToAddr        string     `gorm:"column:to_addr;default:''" json:"to_addr"`
	Text          string     `gorm:"type:text" json:"text"`
	MediaURL      string     `gorm:"column:media_url;default:''" json:"media_url"`
	LocationLat   float64    `gorm:"default:0" json:"location_lat"`
	LocationLng   float64    `gorm:"default:0" json:"location_lng"`
	RawPayload    string     `gorm:"type:text" json:"raw_payload"`
	CorrelationID string     `gorm:"not null;unique_index:ux_msg_idem" json:"correlation_id"`
	ExternalID    string     `gorm:"default:''" json:"external_id"` // id da mensagem no provedor
	Transcript    string     `gorm:"type:text" json:"transcript"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}
