package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"venditto/models"
	"venditto/tools"

	"github.com/jinzhu/gorm"
)

// OCRProvider é a estratégia estruturada de transcrição (Gemini em produção).
// Fica nil quando GEMINI_API_KEY não está configurada; aí o job de OCR falha
// como upstream failure e o tenant vê o motivo na auditoria.
type OCRProvider interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

var ocrProvider OCRProvider

// SetOCRProvider configura o provedor de OCR (chamado no boot; testes injetam fake).
func SetOCRProvider(p OCRProvider) { ocrProvider = p }

// mediaDownloader baixa a mídia do provedor. Injetável pros testes.
var mediaDownloader = func(ctx context.Context, client tools.WhatsAppClient, url string) ([]byte, string, error) {
	return client.DownloadMedia(ctx, url)
}

type ocrPayload struct {
	CaseID       int64 `json:"case_id"`
	AttachmentID int64 `json:"attachment_id"`
	InstanceID   int64 `json:"instance_id"`
}

// transcribeAttachment baixa a mídia do anexo e transcreve via provedor
// estruturado. O texto fica no anexo; a mensagem de origem ganha o backfill
// de transcript (única mutação permitida pós-insert). Idempotente: anexo com
// texto já extraído é no-op.
func transcribeAttachment(db *gorm.DB, att *models.Attachment, instanceID int64) error {
	if strings.TrimSpace(att.OCRText) != "" {
		return nil
	}

	if ocrProvider == nil {
		return fmt.Errorf("provedor de OCR não configurado")
	}

	var instance models.Instance
	if err := db.First(&instance, instanceID).Error; err != nil {
		return fmt.Errorf("instância %d não encontrada", instanceID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	client := tools.WhatsAppClient{
		AccessToken:   instance.AccessToken,
		ApiVersion:    instance.ApiVersion,
		PhoneNumberID: instance.PhoneNumberID,
	}
	data, mime, err := mediaDownloader(ctx, client, att.URL)
	if err != nil {
		return fmt.Errorf("download da mídia: %w", err)
	}

	text, err := ocrProvider.ExtractText(ctx, data, mime)
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}

	if err := db.Model(&models.Attachment{}).Where("id = ?", att.ID).
		Update("ocr_text", text).Error; err != nil {
		return err
	}
	att.OCRText = text

	// backfill do transcript na mensagem de origem
	_ = db.Model(&models.ChannelMessage{}).Where("id = ?", att.MessageID).
		Update("transcript", text).Error
	return nil
}

// handleOCRImage transcreve o documento do anexo e agenda a extração de campos.
func handleOCRImage(db *gorm.DB, job *models.Job) error {
	var p ocrPayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}

	var att models.Attachment
	if err := db.First(&att, p.AttachmentID).Error; err != nil {
		return fmt.Errorf("anexo %d não encontrado", p.AttachmentID)
	}

	if err := transcribeAttachment(db, &att, p.InstanceID); err != nil {
		return err
	}

	return EnqueueJob(db, job.TenantID, models.JOB_TYPE_EXTRACT_FIELDS, map[string]any{
		"case_id":       p.CaseID,
		"attachment_id": att.ID,
		"instance_id":   p.InstanceID,
	}, "extract:"+fmt.Sprint(att.ID), nil)
}

type transcribePayload struct {
	CaseID        int64 `json:"case_id"`
	AttachmentID  int64 `json:"attachment_id"`
	InstanceID    int64 `json:"instance_id"`
	ClosePendency bool  `json:"close_pendency"`
}

// handleTranscribeAudio transcreve um áudio inbound. Quando o áudio chegou
// como resposta num caso já existente, o transcript fecha a pendência aberta
// mais antiga do vendedor, igual a uma resposta de texto.
func handleTranscribeAudio(db *gorm.DB, job *models.Job) error {
	var p transcribePayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}

	var att models.Attachment
	if err := db.First(&att, p.AttachmentID).Error; err != nil {
		return fmt.Errorf("anexo %d não encontrado", p.AttachmentID)
	}

	if err := transcribeAttachment(db, &att, p.InstanceID); err != nil {
		return err
	}

	// O merge pode ter movido o anexo de caso; a pendência fecha no caso
	// atual dele.
	if p.ClosePendency && strings.TrimSpace(att.OCRText) != "" {
		CloseOldestVendorPendency(db, att.CaseID, att.OCRText)
	}
	return nil
}

// StripBoilerplate remove blocos de cabeçalho/rodapé do documento que contêm
// os dados da própria empresa (nome/CNPJ do tenant), pra eles não serem
// confundidos com dados do cliente na extração.
func StripBoilerplate(text, businessName, businessDoc string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return text
	}

	nameKey := tools.NormalizeText(businessName)
	docKey := tools.OnlyDigits(businessDoc)

	isMarker := func(line string) bool {
		if nameKey != "" && strings.Contains(tools.NormalizeText(line), nameKey) {
			return true
		}
		if docKey != "" && strings.Contains(tools.OnlyDigits(line), docKey) {
			return true
		}
		return false
	}

	// Cabeçalho: se o marcador aparece nas primeiras 6 linhas, descarta tudo
	// até a última ocorrência dentro da janela.
	start := 0
	limit := 6
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		if isMarker(lines[i]) {
			start = i + 1
		}
	}

	// Rodapé: mesma janela a partir do fim.
	end := len(lines)
	for i := len(lines) - 1; i >= len(lines)-limit && i >= start; i-- {
		if isMarker(lines[i]) {
			end = i
		}
	}

	if start == 0 && end == len(lines) {
		return text
	}
	return strings.Join(lines[start:end], "\n")
}
