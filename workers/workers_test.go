package workers

import (
	"testing"

	dbpkg "venditto/db"
	"venditto/models"

	"github.com/jinzhu/gorm"
)

const testJourneyConfig = `{
	"states": ["novo", "doc_recebido", "pending_vendor", "ready_review"],
	"default": "novo",
	"create_on_image": true,
	"image_initial_state": "doc_recebido",
	"required_fields": [
		{"key": "cpf", "label": "CPF do cliente", "required": true},
		{"key": "order_total", "label": "Total do pedido", "required": false}
	]
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

type testFixture struct {
	Tenant   models.Tenant
	Journey  models.Journey
	Instance models.Instance
}

func seedFixture(t *testing.T, conn *gorm.DB) testFixture {
	t.Helper()
	var f testFixture

	f.Tenant = models.Tenant{Name: "Distribuidora Aurora", Document: "11222333000181",
		Status: models.TENANT_STATUS_ACTIVE}
	if err := conn.Create(&f.Tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}

	f.Journey = models.Journey{TenantID: f.Tenant.ID, Name: "vendas", Enabled: true,
		Config: testJourneyConfig}
	if err := conn.Create(&f.Journey).Error; err != nil {
		t.Fatalf("journey: %v", err)
	}

	f.Instance = models.Instance{TenantID: f.Tenant.ID, Identifier: "inst-1",
		PhoneNumber: "5511900001111", WebhookSecret: "s3cret",
		DefaultJourneyID: f.Journey.ID, Status: models.INSTANCE_STATUS_ACTIVE}
	if err := conn.Create(&f.Instance).Error; err != nil {
		t.Fatalf("instance: %v", err)
	}

	return f
}

func seedCase(t *testing.T, conn *gorm.DB, f testFixture, state string) *models.Case {
	t.Helper()
	kase := models.Case{
		TenantID:  f.Tenant.ID,
		JourneyID: f.Journey.ID,
		State:     state,
		Status:    models.CASE_STATUS_OPEN,
	}
	kase.MetaSet(models.META_COUNTERPART_PHONE, "5511988887777")
	if err := conn.Create(&kase).Error; err != nil {
		t.Fatalf("case: %v", err)
	}
	return &kase
}
