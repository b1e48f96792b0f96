package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dbpkg "venditto/db"
	"venditto/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const testJourneyConfig = `{
	"states": ["novo", "doc_recebido", "pending_vendor", "ready_review"],
	"default": "novo",
	"create_on_text": true,
	"create_on_image": true,
	"image_initial_state": "doc_recebido",
	"required_fields": [{"key": "cpf", "label": "CPF do cliente", "required": true}]
}`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	conn.DB().SetMaxOpenConns(1)
	conn.LogMode(false)
	dbpkg.Migrate(conn)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func seedInstance(t *testing.T, conn *gorm.DB) *models.Instance {
	t.Helper()

	tenant := models.Tenant{Name: "Distribuidora Aurora", Document: "11222333000181",
		Status: models.TENANT_STATUS_ACTIVE}
	if err := conn.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}

	journey := models.Journey{TenantID: tenant.ID, Name: "vendas", Enabled: true,
		Config: testJourneyConfig}
	if err := conn.Create(&journey).Error; err != nil {
		t.Fatalf("journey: %v", err)
	}

	instance := models.Instance{TenantID: tenant.ID, Identifier: "inst-1",
		PhoneNumber: "5511900001111", WebhookSecret: "s3cret",
		DefaultJourneyID: journey.ID, Status: models.INSTANCE_STATUS_ACTIVE}
	if err := conn.Create(&instance).Error; err != nil {
		t.Fatalf("instance: %v", err)
	}
	return &instance
}

func newWebhookRouter(conn *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(conn))
	r.POST("/webhook/:instance/:secret", WebhookUpdate)
	r.GET("/webhook/:instance/:secret", WebhookHealthcheck)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var parsed map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &parsed)
	return w, parsed
}

func TestWebhookAuth(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	w, _ := postWebhook(t, r, "/webhook/nao-existe/s3cret", `{"text":"oi"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("instância desconhecida: status %d", w.Code)
	}

	w, _ = postWebhook(t, r, "/webhook/inst-1/errado", `{"text":"oi"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("segredo errado: status %d", w.Code)
	}

	var n int
	conn.Model(&models.ChannelMessage{}).Count(&n)
	if n != 0 {
		t.Fatalf("request rejeitado não pode ter efeito colateral, achou %d mensagens", n)
	}
}

func TestWebhookTenantBloqueado(t *testing.T) {
	conn := newTestDB(t)
	instance := seedInstance(t, conn)
	conn.Model(&models.Tenant{}).Where("id = ?", instance.TenantID).
		Update("status", models.TENANT_STATUS_BLOCKED)
	r := newWebhookRouter(conn)

	w, _ := postWebhook(t, r, "/webhook/inst-1/s3cret", `{"text":"oi"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tenant bloqueado: status %d", w.Code)
	}
}

func TestWebhookJSONInvalido(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	w, _ := postWebhook(t, r, "/webhook/inst-1/s3cret", `{nao é json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("json inválido: status %d", w.Code)
	}
}

func TestWebhookGrupoIgnorado(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	w, body := postWebhook(t, r, "/webhook/inst-1/s3cret",
		`{"from":"123456789012345678@g.us","message":{"conversation":"oi grupo"}}`)
	if w.Code != http.StatusOK || body["reason"] != "group_chat" {
		t.Fatalf("grupo: status %d body %v", w.Code, body)
	}

	var n int
	conn.Model(&models.ChannelMessage{}).Count(&n)
	if n != 0 {
		t.Fatalf("evento de grupo não persiste, achou %d mensagens", n)
	}
}

func TestWebhookIdempotencia(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	payload := `{"correlationId":"corr-1","from":"5511988887777","message":{"conversation":"quero fazer um pedido"}}`

	w, body := postWebhook(t, r, "/webhook/inst-1/s3cret", payload)
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("primeira entrega: status %d body %v", w.Code, body)
	}
	firstCase := body["case_id"]

	w, body = postWebhook(t, r, "/webhook/inst-1/s3cret", payload)
	if w.Code != http.StatusOK || body["duplicate"] != true {
		t.Fatalf("segunda entrega deveria ser duplicate, body %v", body)
	}
	if body["case_id"] != firstCase {
		t.Fatalf("eco do duplicado deveria apontar o caso original: %v != %v", body["case_id"], firstCase)
	}

	var n int
	conn.Model(&models.ChannelMessage{}).Count(&n)
	if n != 1 {
		t.Fatalf("esperada 1 mensagem persistida, achou %d", n)
	}
}

func TestWebhookImagemCriaCasoOCRePendencias(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	w, body := postWebhook(t, r, "/webhook/inst-1/s3cret", `{
		"correlationId": "corr-img-1",
		"from": "5511988887777",
		"mimetype": "image/jpeg",
		"mediaUrl": "https://cdn.example/pedido.jpg"
	}`)
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("status %d body %v", w.Code, body)
	}

	var kase models.Case
	if err := conn.First(&kase).Error; err != nil {
		t.Fatalf("caso não criado: %v", err)
	}
	if kase.State != "doc_recebido" {
		t.Fatalf("estado inicial de imagem = %q, esperado doc_recebido", kase.State)
	}

	var job models.Job
	if err := conn.Where("type = ?", models.JOB_TYPE_OCR_IMAGE).First(&job).Error; err != nil {
		t.Fatalf("job de OCR não enfileirado: %v", err)
	}

	var pendencies []models.Pendency
	conn.Where("case_id = ?", kase.ID).Find(&pendencies)
	if len(pendencies) != 2 {
		t.Fatalf("esperadas 2 pendências default, achou %d", len(pendencies))
	}
	kinds := map[string]bool{}
	for _, p := range pendencies {
		kinds[p.Type] = true
	}
	if !kinds[models.PENDENCY_TYPE_NEED_LOCATION] || !kinds[models.PENDENCY_TYPE_NEED_MORE_PAGES] {
		t.Fatalf("tipos de pendência default errados: %v", kinds)
	}
}

func TestWebhookAudioEnfileiraTranscricao(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	// Primeiro áudio abre o caso: transcreve, mas não é resposta a pendência.
	w, body := postWebhook(t, r, "/webhook/inst-1/s3cret", `{
		"correlationId": "corr-audio-1",
		"from": "5511988887777",
		"mimetype": "audio/ogg",
		"mediaUrl": "https://cdn.example/audio1.ogg"
	}`)
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("status %d body %v", w.Code, body)
	}

	var att models.Attachment
	if err := conn.Where("kind = ?", models.ATTACHMENT_KIND_AUDIO).First(&att).Error; err != nil {
		t.Fatalf("anexo de áudio não criado: %v", err)
	}

	var job models.Job
	if err := conn.Where("type = ?", models.JOB_TYPE_TRANSCRIBE_AUDIO).First(&job).Error; err != nil {
		t.Fatalf("job de transcrição não enfileirado: %v", err)
	}
	if strings.Contains(job.Payload, `"close_pendency":true`) {
		t.Fatalf("áudio que abriu o caso não fecha pendência: %s", job.Payload)
	}

	// Segundo áudio no caso já existente é resposta: fecha pendência.
	postWebhook(t, r, "/webhook/inst-1/s3cret", `{
		"correlationId": "corr-audio-2",
		"from": "5511988887777",
		"mimetype": "audio/ogg",
		"mediaUrl": "https://cdn.example/audio2.ogg"
	}`)

	var jobs []models.Job
	conn.Where("type = ?", models.JOB_TYPE_TRANSCRIBE_AUDIO).Order("id asc").Find(&jobs)
	if len(jobs) != 2 {
		t.Fatalf("esperados 2 jobs de transcrição, achou %d", len(jobs))
	}
	if !strings.Contains(jobs[1].Payload, `"close_pendency":true`) {
		t.Fatalf("áudio-resposta deveria fechar pendência: %s", jobs[1].Payload)
	}
}

func TestWebhookFalhaDePersistencia(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	// Sem a tabela de mensagens o insert falha de verdade; falha de banco não
	// pode ser mascarada como resposta de duplicado.
	conn.DropTable(&models.ChannelMessage{})

	w, body := postWebhook(t, r, "/webhook/inst-1/s3cret",
		`{"correlationId":"corr-500","from":"5511988887777","message":{"conversation":"oi"}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("falha de banco deveria dar 500, status %d body %v", w.Code, body)
	}
	if body["duplicate"] == true {
		t.Fatalf("falha de banco respondida como duplicado: %v", body)
	}
}

func TestWebhookOutboundDedup(t *testing.T) {
	conn := newTestDB(t)
	seedInstance(t, conn)
	r := newWebhookRouter(conn)

	payload := `{"correlationId":"out-1","fromMe":true,"to":"5511988887777","message":{"conversation":"segue o orçamento"}}`
	w, body := postWebhook(t, r, "/webhook/inst-1/s3cret", payload)
	if w.Code != http.StatusOK || body["ok"] != true {
		t.Fatalf("outbound: status %d body %v", w.Code, body)
	}

	var msg models.ChannelMessage
	if err := conn.First(&msg).Error; err != nil {
		t.Fatalf("mensagem outbound não persistida: %v", err)
	}
	if msg.Direction != models.MESSAGE_DIRECTION_OUTBOUND {
		t.Fatalf("direção = %q", msg.Direction)
	}

	// Replay com correlation id novo, mas mesmo destino/corpo dentro da janela.
	replay := `{"correlationId":"out-2","fromMe":true,"to":"5511988887777","message":{"conversation":"segue o orçamento"}}`
	_, body = postWebhook(t, r, "/webhook/inst-1/s3cret", replay)
	if body["duplicate"] != true {
		t.Fatalf("quase-duplicado deveria ser suprimido, body %v", body)
	}

	var n int
	conn.Model(&models.ChannelMessage{}).Count(&n)
	if n != 1 {
		t.Fatalf("esperada 1 mensagem, achou %d", n)
	}
}
