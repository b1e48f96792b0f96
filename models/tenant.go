package models

import "time"

/************************************************
/**** MARK: TENANT STATUS ****/
/************************************************/
const TENANT_STATUS_ACTIVE = "active"
const TENANT_STATUS_BLOCKED = "blocked"

// Tenant representa uma organização isolada. Todo dado do sistema é escopado
// por tenant_id.
type Tenant struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Name      string     `gorm:"not null" json:"name"`
	Document  string     `gorm:"default:''" json:"document"` // CNPJ da empresa (marcador de boilerplate no OCR)
	Status    string     `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
