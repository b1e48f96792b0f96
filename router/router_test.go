package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"venditto/config"
	dbpkg "venditto/db"
	"venditto/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

func newTestServer(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	conn, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	conn.DB().SetMaxOpenConns(1)
	conn.LogMode(false)
	dbpkg.Migrate(conn)
	t.Cleanup(func() { conn.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(conn))

	var cfg config.Configuration
	cfg.AdminToken = "token-teste"
	Initialize(r, cfg)
	return conn, r
}

func adminRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMetodoNaoSuportado(t *testing.T) {
	_, r := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/webhook/inst-1/s3cret", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT no webhook: status %d, esperado 405", w.Code)
	}
}

func TestAdminTokenObrigatorio(t *testing.T) {
	_, r := newTestServer(t)

	if w := adminRequest(r, http.MethodGet, "/api/cases", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("sem token: status %d", w.Code)
	}
	if w := adminRequest(r, http.MethodGet, "/api/cases", "errado"); w.Code != http.StatusUnauthorized {
		t.Fatalf("token errado: status %d", w.Code)
	}
	if w := adminRequest(r, http.MethodGet, "/api/cases", "token-teste"); w.Code != http.StatusOK {
		t.Fatalf("token certo: status %d", w.Code)
	}
}

func TestAdminCaseDetail(t *testing.T) {
	conn, r := newTestServer(t)

	tenant := models.Tenant{Name: "Aurora", Status: models.TENANT_STATUS_ACTIVE}
	conn.Create(&tenant)
	kase := models.Case{TenantID: tenant.ID, JourneyID: 1, State: "novo",
		Status: models.CASE_STATUS_OPEN}
	conn.Create(&kase)
	field := models.CaseField{CaseID: kase.ID, Key: "cpf", Value: "52998224725",
		Source: models.FIELD_SOURCE_OCR, Confidence: 0.9}
	conn.Create(&field)

	w := adminRequest(r, http.MethodGet, "/api/cases/1", "token-teste")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	var body struct {
		Case   models.Case        `json:"case"`
		Fields []models.CaseField `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body: %v", err)
	}
	if body.Case.ID != kase.ID || len(body.Fields) != 1 || body.Fields[0].Key != "cpf" {
		t.Fatalf("agregado incompleto: %+v", body)
	}

	if w := adminRequest(r, http.MethodGet, "/api/cases/999", "token-teste"); w.Code != http.StatusNotFound {
		t.Fatalf("caso inexistente: status %d", w.Code)
	}
}

func TestAdminRequeueFailed(t *testing.T) {
	conn, r := newTestServer(t)

	tenant := models.Tenant{Name: "Aurora", Status: models.TENANT_STATUS_ACTIVE}
	conn.Create(&tenant)
	job := models.Job{TenantID: tenant.ID, Type: "TEST", Payload: "{}",
		IdempotencyKey: "rq:1", Status: models.JOB_STATUS_FAILED,
		LastError: "boom"}
	conn.Create(&job)

	w := adminRequest(r, http.MethodPost, "/api/jobs/requeue-failed", "token-teste")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["requeued"] != float64(1) {
		t.Fatalf("requeued = %v", body["requeued"])
	}

	var reloaded models.Job
	conn.First(&reloaded, job.ID)
	if reloaded.Status != models.JOB_STATUS_PENDING {
		t.Fatalf("status = %q", reloaded.Status)
	}
}
