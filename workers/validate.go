package workers

import (
	"encoding/json"
	"fmt"
	"strings"

	dbpkg "venditto/db"
	"venditto/models"

	"github.com/jinzhu/gorm"
)

type validatePayload struct {
	CaseID     int64 `json:"case_id"`
	InstanceID int64 `json:"instance_id"`
}

// handleValidateFields confronta os campos do caso com os required_fields da
// jornada. Campo obrigatório ausente ou inválido vira pendência missing_field
// (dedupada por field_key); caso com pendência obrigatória fica em
// pending_vendor, caso completo avança pra ready_review.
func handleValidateFields(db *gorm.DB, job *models.Job) error {
	var p validatePayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}

	var kase models.Case
	if err := db.First(&kase, p.CaseID).Error; err != nil {
		// Caso já fundido num duplicado: no-op idempotente.
		if !db.Unscoped().First(&kase, p.CaseID).RecordNotFound() {
			return nil
		}
		return fmt.Errorf("caso %d não encontrado", p.CaseID)
	}
	if kase.Status == models.CASE_STATUS_CLOSED {
		return nil
	}

	var journey models.Journey
	if err := db.First(&journey, kase.JourneyID).Error; err != nil {
		return fmt.Errorf("jornada %d não encontrada", kase.JourneyID)
	}
	cfg, err := journey.ParsedConfig()
	if err != nil {
		return err
	}

	requiredOpen := false
	for _, f := range cfg.RequiredFields {
		value := GetCaseField(db, kase.ID, f.Key)
		problem := ""
		if strings.TrimSpace(value) == "" {
			problem = "não informado"
		} else if !fieldValueValid(f.Key, value) {
			problem = "valor inválido"
		}
		if problem == "" {
			continue
		}

		if f.Required {
			requiredOpen = true
		}
		openMissingFieldPendency(db, &kase, f, problem)
	}

	newStatus := models.CASE_STATUS_READY_REVIEW
	if requiredOpen {
		newStatus = models.CASE_STATUS_PENDING_VENDOR
	}
	updates := map[string]any{"status": newStatus}
	if cfg.HasState(newStatus) {
		updates["state"] = newStatus
	}
	if err := db.Model(&models.Case{}).Where("id = ?", kase.ID).Updates(updates).Error; err != nil {
		return err
	}

	dbpkg.Audit(db, kase.TenantID, &kase.ID, "case_validated",
		fmt.Sprintf("validação concluída, caso %d -> %s", kase.ID, newStatus), nil)

	// Pendência aberta de vendedor dispara a cobrança via mensageria.
	var openVendor int
	db.Model(&models.Pendency{}).
		Where("case_id = ? AND status = ? AND role = ?",
			kase.ID, models.PENDENCY_STATUS_OPEN, models.ROLE_VENDOR).
		Count(&openVendor)
	if openVendor == 0 {
		return nil
	}

	return EnqueueJob(db, kase.TenantID, models.JOB_TYPE_ASK_PENDENCIES, map[string]any{
		"case_id":     kase.ID,
		"instance_id": p.InstanceID,
	}, fmt.Sprintf("ask:%d:%d", kase.ID, job.ID), nil)
}

// fieldValueValid valida o valor pelos mesmos critérios da normalização de
// extração; chave sem regra conhecida aceita qualquer valor não vazio.
func fieldValueValid(key, value string) bool {
	switch key {
	case FIELD_CPF, FIELD_CNPJ, FIELD_ORDER_TOTAL, FIELD_ORDER_DATE:
		return normalizeFieldValue(key, value) != ""
	}
	return true
}

// openMissingFieldPendency abre a pendência do campo se ainda não existe uma
// aberta pra mesma field_key (re-validação não duplica cobrança).
func openMissingFieldPendency(db *gorm.DB, kase *models.Case, f models.JourneyField, problem string) {
	var existing models.Pendency
	err := db.Where("case_id = ? AND type = ? AND field_key = ? AND status = ?",
		kase.ID, models.PENDENCY_TYPE_MISSING_FIELD, f.Key, models.PENDENCY_STATUS_OPEN).
		First(&existing).Error
	if err == nil {
		return
	}

	label := f.Label
	if label == "" {
		label = f.Key
	}
	role := f.Role
	if role == "" {
		role = models.ROLE_VENDOR
	}

	pend := models.Pendency{
		TenantID:    kase.TenantID,
		CaseID:      kase.ID,
		Type:        models.PENDENCY_TYPE_MISSING_FIELD,
		FieldKey:    f.Key,
		Description: fmt.Sprintf("%s: %s", label, problem),
		Role:        role,
		Required:    f.Required,
		Status:      models.PENDENCY_STATUS_OPEN,
	}
	if err := db.Create(&pend).Error; err != nil {
		return
	}
	dbpkg.Audit(db, kase.TenantID, &kase.ID, "pendency_created",
		fmt.Sprintf("pendência de campo %s aberta no caso %d", f.Key, kase.ID),
		map[string]any{"field_key": f.Key, "role": role})
}
