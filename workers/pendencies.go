package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dbpkg "venditto/db"
	"venditto/models"
	"venditto/tools"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// pendencyMessenger envia a cobrança pelo canal. Injetável pros testes.
var pendencyMessenger = func(ctx context.Context, client tools.WhatsAppClient, to, text string) error {
	return client.SendText(ctx, to, text)
}

type askPayload struct {
	CaseID     int64 `json:"case_id"`
	InstanceID int64 `json:"instance_id"`
}

// handleAskPendencies monta a lista numerada de pendências abertas do vendedor
// e manda pro telefone do interlocutor do caso. A mensagem enviada também vira
// ChannelMessage outbound, pro histórico do caso ficar completo.
func handleAskPendencies(db *gorm.DB, job *models.Job) error {
	var p askPayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}

	var kase models.Case
	if err := db.First(&kase, p.CaseID).Error; err != nil {
		if !db.Unscoped().First(&kase, p.CaseID).RecordNotFound() {
			return nil
		}
		return fmt.Errorf("caso %d não encontrado", p.CaseID)
	}

	var pendencies []models.Pendency
	if err := db.Where("case_id = ? AND status = ? AND role = ?",
		kase.ID, models.PENDENCY_STATUS_OPEN, models.ROLE_VENDOR).
		Order("id asc").Find(&pendencies).Error; err != nil {
		return err
	}
	if len(pendencies) == 0 {
		return nil
	}

	to := kase.MetaGet(models.META_COUNTERPART_PHONE)
	if to == "" {
		to = kase.MetaGet(models.META_CUSTOMER_PHONE)
	}
	if to == "" {
		return fmt.Errorf("caso %d sem telefone de interlocutor", kase.ID)
	}

	var instance models.Instance
	if err := db.First(&instance, p.InstanceID).Error; err != nil {
		return fmt.Errorf("instância %d não encontrada", p.InstanceID)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Pedido #%d: faltam algumas informações:\n", kase.ID))
	for i, pend := range pendencies {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, pend.Description))
	}
	b.WriteString("Responda por aqui mesmo, na ordem.")
	text := b.String()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := tools.WhatsAppClient{
		AccessToken:   instance.AccessToken,
		ApiVersion:    instance.ApiVersion,
		PhoneNumberID: instance.PhoneNumberID,
	}
	if err := pendencyMessenger(ctx, client, to, text); err != nil {
		return fmt.Errorf("envio da cobrança: %w", err)
	}

	msg := models.ChannelMessage{
		TenantID:      kase.TenantID,
		InstanceID:    instance.ID,
		CaseID:        &kase.ID,
		Direction:     models.MESSAGE_DIRECTION_OUTBOUND,
		Type:          models.MESSAGE_TYPE_TEXT,
		FromAddr:      instance.PhoneNumber,
		ToAddr:        to,
		Text:          text,
		CorrelationID: "ask:" + uuid.NewString(),
	}
	_ = db.Create(&msg).Error

	dbpkg.Audit(db, kase.TenantID, &kase.ID, "pendencies_asked",
		fmt.Sprintf("%d pendência(s) cobradas no caso %d", len(pendencies), kase.ID),
		map[string]any{"to": to, "count": len(pendencies)})
	return nil
}

// CloseOldestVendorPendency fecha a pendência aberta mais antiga do vendedor
// com o texto recebido como resposta. Best-effort: o conteúdo não é validado,
// a próxima validação reabre o que continuar faltando.
func CloseOldestVendorPendency(db *gorm.DB, caseID int64, answer string) bool {
	var pend models.Pendency
	err := db.Where("case_id = ? AND status = ? AND role = ?",
		caseID, models.PENDENCY_STATUS_OPEN, models.ROLE_VENDOR).
		Order("id asc").First(&pend).Error
	if err != nil {
		return false
	}

	now := time.Now()
	if err := db.Model(&models.Pendency{}).Where("id = ?", pend.ID).Updates(map[string]any{
		"status":      models.PENDENCY_STATUS_ANSWERED,
		"answer":      answer,
		"answered_at": &now,
	}).Error; err != nil {
		return false
	}

	// Resposta a pendência de campo também grava o campo, com fonte vendor.
	if pend.Type == models.PENDENCY_TYPE_MISSING_FIELD && pend.FieldKey != "" {
		SetCaseField(db, caseID, pend.FieldKey, answer, models.FIELD_SOURCE_VENDOR, 1)
	}

	dbpkg.Audit(db, pend.TenantID, &caseID, "pendency_answered",
		fmt.Sprintf("pendência %d respondida no caso %d", pend.ID, caseID),
		map[string]any{"pendency_id": pend.ID, "field_key": pend.FieldKey})
	return true
}
