package models

import "time"

/************************************************
/**** MARK: FIELD SOURCES ****/
/************************************************/
const FIELD_SOURCE_OCR = "ocr"
const FIELD_SOURCE_ADMIN = "admin"
const FIELD_SOURCE_VENDOR = "vendor"
const FIELD_SOURCE_CUSTOMER = "customer"

// CaseField é um fato chave/valor sobre um caso, com proveniência e confiança.
// Invariante: campo com source=admin nunca é sobrescrito por escrita de menor
// confiança (edição manual é autoritativa). Ver SetCaseField em workers.
type CaseField struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CaseID     int64      `gorm:"not null;unique_index:ux_case_field" json:"case_id"`
	Key        string     `gorm:"not null;unique_index:ux_case_field" json:"key"`
	Value      string     `gorm:"type:text" json:"value"`
	Source     string     `gorm:"not null;default:'ocr'" json:"source"`
	Confidence float64    `gorm:"not null;default:0" json:"confidence"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// TrustLevel ordena as fontes por confiança (admin > vendor/customer > ocr).
func TrustLevel(source string) int {
	switch source {
	case FIELD_SOURCE_ADMIN:
		return 3
	case FIELD_SOURCE_VENDOR, FIELD_SOURCE_CUSTOMER:
		return 2
	case FIELD_SOURCE_OCR:
		return 1
	}
	return 0
}
