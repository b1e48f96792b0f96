package models

import "time"

/************************************************
/**** MARK: PENDENCY STATUS ****/
/************************************************/
const PENDENCY_STATUS_OPEN = "open"
const PENDENCY_STATUS_ANSWERED = "answered"

/************************************************
/**** MARK: PENDENCY TYPES ****/
/************************************************/
const PENDENCY_TYPE_MISSING_FIELD = "missing_field"
const PENDENCY_TYPE_NEED_LOCATION = "need_location"
const PENDENCY_TYPE_NEED_MORE_PAGES = "need_more_pages"

// Pendency é uma pergunta em aberto sobre um caso, atribuída a um papel.
// Criada pela validação; fechada por resposta inbound (best-effort, sem
// validar o conteúdo) ou por submissão explícita do campo.
type Pendency struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID    int64      `gorm:"not null;index" json:"tenant_id"`
	CaseID      int64      `gorm:"not null;index" json:"case_id"`
	Type        string     `gorm:"not null;default:'missing_field'" json:"type"`
	FieldKey    string     `gorm:"default:''" json:"field_key"`
	Description string     `gorm:"type:text" json:"description"`
	Role        string     `gorm:"not null;default:'vendor';index" json:"role"`
	Required    bool       `gorm:"not null;default:false" json:"required"`
	Status      string     `gorm:"not null;default:'open';index" json:"status"`
	DueAt       *time.Time `json:"due_at"`
	AnsweredAt  *time.Time `json:"answered_at"`
	Answer      string     `gorm:"type:text" json:"answer"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
