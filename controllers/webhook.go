package controllers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	dbpkg "venditto/db"
	"venditto/models"
	"venditto/tools"
	"venditto/workers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// Janela da supressão heurística de outbound quase-duplicado.
// Sobrescrita pela config no Initialize do router.
var OutboundDedupWindow = 60 * time.Second

// GET /webhook/:instance/:secret - healthcheck do provedor.
func WebhookHealthcheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// resolveWebhookSecret extrai o segredo na precedência header -> query ->
// segmento de path.
func resolveWebhookSecret(c *gin.Context) string {
	if s := strings.TrimSpace(c.GetHeader("X-Webhook-Secret")); s != "" {
		return s
	}
	if s := strings.TrimSpace(c.Query("secret")); s != "" {
		return s
	}
	return strings.TrimSpace(c.Param("secret"))
}

// requireInstance autentica o request do webhook: instância existente,
// segredo correto, tenant ativo. Falha aqui não tem efeito colateral nenhum.
func requireInstance(c *gin.Context, db *gorm.DB) (*models.Instance, bool) {
	identifier := strings.TrimSpace(c.Param("instance"))
	if identifier == "" {
		c.String(http.StatusBadRequest, "missing instance identifier")
		return nil, false
	}

	var instance models.Instance
	if err := db.Where("identifier = ?", identifier).First(&instance).Error; err != nil {
		c.String(http.StatusNotFound, "instance not found")
		return nil, false
	}

	secret := resolveWebhookSecret(c)
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(instance.WebhookSecret)) != 1 {
		c.String(http.StatusUnauthorized, "invalid webhook secret")
		return nil, false
	}

	var tenant models.Tenant
	if err := db.First(&tenant, instance.TenantID).Error; err != nil ||
		tenant.Status != models.TENANT_STATUS_ACTIVE {
		c.String(http.StatusUnauthorized, "tenant blocked")
		return nil, false
	}

	if instance.Status != models.INSTANCE_STATUS_ACTIVE {
		c.String(http.StatusUnauthorized, "instance disabled")
		return nil, false
	}

	return &instance, true
}

// POST /webhook/:instance/:secret
//
// Fluxo: guarda de auth/idempotência -> normalização -> roteador de caso ->
// persistência da ChannelMessage -> enfileiramento de OCR pra mídia.
func WebhookUpdate(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		c.String(http.StatusInternalServerError, "db não configurado no contexto")
		return
	}

	instance, ok := requireInstance(c, db)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "failed to read body")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		c.String(http.StatusBadRequest, "invalid json")
		return
	}

	ev := NormalizeEvent(payload, instance.Identifier, instance.PhoneNumber, c.Query("direction"))

	// Correlation id: campo explícito -> id externo do provedor -> uuid novo.
	correlationID := firstMatch(payload, correlationExtractors)
	if correlationID == "" {
		correlationID = ev.ExternalID
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	// Grupo/broadcast: reconhecido, nunca abre caso nem persiste.
	if IsGroupAddress(ev.From) || IsGroupAddress(ev.To) {
		RespondSuccess(c, gin.H{"ok": true, "reason": "group_chat"})
		return
	}

	if ev.Direction == models.MESSAGE_DIRECTION_OUTBOUND {
		handleOutboundEvent(c, db, instance, ev, correlationID, raw)
		return
	}

	handleInboundEvent(c, db, instance, ev, correlationID, raw)
}

func handleInboundEvent(c *gin.Context, db *gorm.DB, instance *models.Instance, ev NormalizedEvent, correlationID string, raw []byte) {
	// Checagem de idempotência: entrega repetida ecoa o caso original.
	var existing models.ChannelMessage
	if err := db.Where("instance_id = ? AND direction = ? AND correlation_id = ?",
		instance.ID, models.MESSAGE_DIRECTION_INBOUND, correlationID).
		First(&existing).Error; err == nil {
		caseID := ""
		if existing.CaseID != nil {
			caseID = formatID(*existing.CaseID)
		}
		RespondSuccess(c, gin.H{"ok": true, "duplicate": true, "case_id": caseID})
		return
	}

	route, err := RouteInboundCase(db, instance, ev)
	if err != nil {
		// Jornada não resolvível/configuração inválida é fatal pro request.
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	msg := models.ChannelMessage{
		TenantID:      instance.TenantID,
		InstanceID:    instance.ID,
		Direction:     models.MESSAGE_DIRECTION_INBOUND,
		Type:          ev.Type,
		FromAddr:      stripJid(ev.From),
		ToAddr:        instance.PhoneNumber,
		Text:          ev.Text,
		MediaURL:      ev.MediaURL,
		RawPayload:    string(raw),
		CorrelationID: correlationID,
		ExternalID:    ev.ExternalID,
	}
	if ev.Location != nil {
		msg.LocationLat = ev.Location.Lat
		msg.LocationLng = ev.Location.Lng
	}
	if route.Case != nil {
		msg.CaseID = &route.Case.ID
	}

	if err := db.Create(&msg).Error; err != nil {
		// Corrida entre duas entregas concorrentes: o unique index segura a
		// segunda aqui. Só é duplicado se o gêmeo existir de fato; sem gêmeo
		// é falha real de banco.
		var twin models.ChannelMessage
		if db.Where("instance_id = ? AND direction = ? AND correlation_id = ?",
			instance.ID, models.MESSAGE_DIRECTION_INBOUND, correlationID).
			First(&twin).Error == nil {
			caseID := ""
			if twin.CaseID != nil {
				caseID = formatID(*twin.CaseID)
			}
			RespondSuccess(c, gin.H{"ok": true, "duplicate": true, "case_id": caseID})
			return
		}
		RespondError(c, "failed to persist message", http.StatusInternalServerError)
		return
	}

	if route.Case != nil {
		afterInboundPersist(db, instance, route, &msg, ev)
	}

	caseID := ""
	if route.Case != nil {
		caseID = formatID(route.Case.ID)
	}
	RespondSuccess(c, gin.H{"ok": true, "correlation_id": correlationID, "case_id": caseID})
}

// afterInboundPersist cuida dos efeitos pós-insert: anexo + job de OCR pra
// mídia, pendências default de caso novo por imagem, fechamento best-effort
// de pendência por resposta de texto ou de áudio (via transcrição).
func afterInboundPersist(db *gorm.DB, instance *models.Instance, route *RouteResult, msg *models.ChannelMessage, ev NormalizedEvent) {
	kase := route.Case

	if ev.Type == models.MESSAGE_TYPE_IMAGE && ev.MediaURL != "" {
		att := models.Attachment{
			TenantID:  instance.TenantID,
			CaseID:    kase.ID,
			MessageID: msg.ID,
			URL:       ev.MediaURL,
			Kind:      models.ATTACHMENT_KIND_IMAGE,
		}
		if strings.Contains(strings.ToLower(ev.MimeType), "pdf") {
			att.Kind = models.ATTACHMENT_KIND_DOCUMENT
		}
		if err := db.Create(&att).Error; err == nil {
			_ = workers.EnqueueJob(db, instance.TenantID, models.JOB_TYPE_OCR_IMAGE, map[string]any{
				"case_id":       kase.ID,
				"attachment_id": att.ID,
				"instance_id":   instance.ID,
			}, "ocr:"+formatID(att.ID), nil)
		}

		if route.Created {
			createDefaultPendencies(db, instance.TenantID, kase.ID)
		}
	}

	// Áudio vai pra fila de transcrição; o transcript fecha pendência quando
	// o áudio chegou como resposta (caso já existia).
	if ev.Type == models.MESSAGE_TYPE_AUDIO && ev.MediaURL != "" {
		att := models.Attachment{
			TenantID:  instance.TenantID,
			CaseID:    kase.ID,
			MessageID: msg.ID,
			URL:       ev.MediaURL,
			Kind:      models.ATTACHMENT_KIND_AUDIO,
		}
		if err := db.Create(&att).Error; err == nil {
			_ = workers.EnqueueJob(db, instance.TenantID, models.JOB_TYPE_TRANSCRIBE_AUDIO, map[string]any{
				"case_id":        kase.ID,
				"attachment_id":  att.ID,
				"instance_id":    instance.ID,
				"close_pendency": !route.Created,
			}, "transcribe:"+formatID(att.ID), nil)
		}
	}

	// Resposta de texto fecha a pendência aberta mais antiga do vendedor,
	// best-effort, sem validar o conteúdo.
	if ev.Type == models.MESSAGE_TYPE_TEXT && !route.Created && strings.TrimSpace(ev.Text) != "" {
		workers.CloseOldestVendorPendency(db, kase.ID, ev.Text)
	}
}

// Pendências default de caso novo aberto por imagem: o documento sozinho
// quase nunca traz localização e costuma ter mais páginas.
func createDefaultPendencies(db *gorm.DB, tenantID, caseID int64) {
	defaults := []models.Pendency{
		{
			TenantID: tenantID, CaseID: caseID,
			Type:        models.PENDENCY_TYPE_NEED_LOCATION,
			Description: "Qual o endereço/localização de entrega?",
			Role:        models.ROLE_VENDOR,
		},
		{
			TenantID: tenantID, CaseID: caseID,
			Type:        models.PENDENCY_TYPE_NEED_MORE_PAGES,
			Description: "O pedido tem mais páginas? Se sim, envie as fotos restantes.",
			Role:        models.ROLE_VENDOR,
		},
	}
	for i := range defaults {
		_ = db.Create(&defaults[i]).Error
	}
}

// handleOutboundEvent registra mensagens enviadas fora do painel (replays do
// provedor). Heurística anti-replay: mesmo destinatário, tipo e corpo dentro
// da janela recente = quase-duplicado, suprime o insert.
func handleOutboundEvent(c *gin.Context, db *gorm.DB, instance *models.Instance, ev NormalizedEvent, correlationID string, raw []byte) {
	var existing models.ChannelMessage
	if err := db.Where("instance_id = ? AND direction = ? AND correlation_id = ?",
		instance.ID, models.MESSAGE_DIRECTION_OUTBOUND, correlationID).
		First(&existing).Error; err == nil {
		RespondSuccess(c, gin.H{"ok": true, "duplicate": true})
		return
	}

	to := stripJid(ev.To)
	if to == "" {
		to = stripJid(ev.From)
	}

	cutoff := time.Now().Add(-OutboundDedupWindow)
	if err := db.Where("instance_id = ? AND direction = ? AND to_addr = ? AND type = ? AND text = ? AND created_at > ?",
		instance.ID, models.MESSAGE_DIRECTION_OUTBOUND, to, ev.Type, ev.Text, cutoff).
		First(&existing).Error; err == nil {
		RespondSuccess(c, gin.H{"ok": true, "duplicate": true})
		return
	}

	msg := models.ChannelMessage{
		TenantID:      instance.TenantID,
		InstanceID:    instance.ID,
		Direction:     models.MESSAGE_DIRECTION_OUTBOUND,
		Type:          ev.Type,
		FromAddr:      instance.PhoneNumber,
		ToAddr:        to,
		Text:          ev.Text,
		MediaURL:      ev.MediaURL,
		RawPayload:    string(raw),
		CorrelationID: correlationID,
		ExternalID:    ev.ExternalID,
	}

	// Best-effort: vincula ao caso aberto do destinatário, se houver.
	if customer := findCustomerByPhone(db, instance.TenantID, to); customer != nil {
		var kase models.Case
		if err := db.Where("tenant_id = ? AND customer_id = ? AND status <> ?",
			instance.TenantID, customer.ID, models.CASE_STATUS_CLOSED).
			Order("id desc").First(&kase).Error; err == nil {
			msg.CaseID = &kase.ID
		}
	}

	if err := db.Create(&msg).Error; err != nil {
		var twin models.ChannelMessage
		if db.Where("instance_id = ? AND direction = ? AND correlation_id = ?",
			instance.ID, models.MESSAGE_DIRECTION_OUTBOUND, correlationID).
			First(&twin).Error == nil {
			RespondSuccess(c, gin.H{"ok": true, "duplicate": true})
			return
		}
		RespondError(c, "failed to persist message", http.StatusInternalServerError)
		return
	}

	caseID := ""
	if msg.CaseID != nil {
		caseID = formatID(*msg.CaseID)
	}
	RespondSuccess(c, gin.H{"ok": true, "correlation_id": correlationID, "case_id": caseID})
}

func findCustomerByPhone(db *gorm.DB, tenantID int64, phone string) *models.Customer {
	variants := tools.PhoneVariants(phone)
	if len(variants) == 0 {
		return nil
	}
	var customer models.Customer
	if err := db.Where("tenant_id = ? AND phone IN (?)", tenantID, variants).
		First(&customer).Error; err != nil {
		return nil
	}
	return &customer
}
