package models

import "time"

/************************************************
/**** MARK: AUDIT ACTORS ****/
/************************************************/
const AUDIT_ACTOR_SYSTEM = "system"

// AuditLog é a trilha de decisão visível pro tenant: qual regra roteou o
// evento, por que um job falhou, quais casos foram fundidos etc.
type AuditLog struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID  int64      `gorm:"not null;index" json:"tenant_id"`
	CaseID    *int64     `gorm:"index" json:"case_id"`
	Actor     string     `gorm:"not null;default:'system'" json:"actor"`
	Kind      string     `gorm:"not null;index" json:"kind"`
	Message   string     `gorm:"type:text" json:"message"`
	Data      string     `gorm:"type:text" json:"data"` // JSON livre
	CreatedAt *time.Time `json:"created_at"`
}
