package models

import "time"

/************************************************
/**** MARK: ATTACHMENT KINDS ****/
/************************************************/
const ATTACHMENT_KIND_IMAGE = "image"
const ATTACHMENT_KIND_DOCUMENT = "document"
const ATTACHMENT_KIND_AUDIO = "audio"

// Attachment referencia a mídia de uma mensagem ligada a um caso.
// OCRText é preenchido pelo job OCR_IMAGE e consumido por EXTRACT_FIELDS.
type Attachment struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID  int64      `gorm:"not null;index" json:"tenant_id"`
	CaseID    int64      `gorm:"not null;index" json:"case_id"`
	MessageID int64      `gorm:"not null;index" json:"message_id"`
	URL       string     `gorm:"not null" json:"url"`
	Kind      string     `gorm:"not null;default:'image'" json:"kind"`
	OCRText   string     `gorm:"column:ocr_text;type:text" json:"ocr_text"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
