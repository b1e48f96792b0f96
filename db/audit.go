package db

import (
	"encoding/json"
	"log"

	"venditto/models"

	"github.com/jinzhu/gorm"
)

// Audit grava uma entrada na trilha de decisão do tenant (actor=system).
// Falha de auditoria não derruba o fluxo principal, só loga.
func Audit(conn *gorm.DB, tenantID int64, caseID *int64, kind, message string, data map[string]any) {
	entry := models.AuditLog{
		TenantID: tenantID,
		CaseID:   caseID,
		Actor:    models.AUDIT_ACTOR_SYSTEM,
		Kind:     kind,
		Message:  message,
	}
	if len(data) > 0 {
		b, _ := json.Marshal(data)
		entry.Data = string(b)
	}
	if err := conn.Create(&entry).Error; err != nil {
		log.Printf("audit: falha ao gravar %s: %v", kind, err)
	}
}
