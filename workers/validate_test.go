package workers

import (
	"fmt"
	"testing"

	"venditto/models"
)

func TestValidateCamposFaltando(t *testing.T) {
	conn := newTestDB(t)
	f := seedFixture(t, conn)
	kase := seedCase(t, conn, f, "doc_recebido")

	// order_total presente (opcional ok), cpf obrigatório ausente.
	SetCaseField(conn, kase.ID, FIELD_ORDER_TOTAL, "123456", models.FIELD_SOURCE_OCR, 0.9)

	job := models.Job{TenantID: f.Tenant.ID, Type: models.JOB_TYPE_VALIDATE_FIELDS,
		Payload:        fmt.Sprintf(`{"case_id":%d,"instance_id":%d}`, kase.ID, f.Instance.ID),
		IdempotencyKey: "validate-t1", Status: models.JOB_STATUS_PROCESSING}
	if err := conn.Create(&job).Error; err != nil {
		t.Fatalf("job: %v", err)
	}
	if err := handleValidateFields(conn, &job); err != nil {
		t.Fatalf("handleValidateFields: %v", err)
	}

	var updated models.Case
	if err := conn.First(&updated, kase.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if updated.Status != models.CASE_STATUS_PENDING_VENDOR {
		t.Fatalf("status = %q, esperado pending_vendor", updated.Status)
	}
	// pending_vendor está declarado como estado da jornada de teste.
	if updated.State != models.CASE_STATUS_PENDING_VENDOR {
		t.Fatalf("state = %q, esperado pending_vendor", updated.State)
	}

	var pend models.Pendency
	if err := conn.Where("case_id = ? AND type = ? AND field_key = ?",
		kase.ID, models.PENDENCY_TYPE_MISSING_FIELD, "cpf").First(&pend).Error; err != nil {
		t.Fatalf("pendência de cpf não criada: %v", err)
	}
	if !pend.Required || pend.Role != models.ROLE_VENDOR || pend.Status != models.PENDENCY_STATUS_OPEN {
		t.Fatalf("pendência = %+v", pend)
	}

	var ask models.Job
	if err := conn.Where("type = ?", models.JOB_TYPE_ASK_PENDENCIES).First(&ask).Error; err != nil {
		t.Fatalf("ASK_PENDENCIES não enfileirado: %v", err)
	}

	// Re-validação não duplica a pendência aberta.
	job2 := models.Job{TenantID: f.Tenant.ID, Type: models.JOB_TYPE_VALIDATE_FIELDS,
		Payload:        fmt.Sprintf(`{"case_id":%d,"instance_id":%d}`, kase.ID, f.Instance.ID),
		IdempotencyKey: "validate-t2", Status: models.JOB_STATUS_PROCESSING}
	conn.Create(&job2)
	if err := handleValidateFields(conn, &job2); err != nil {
		t.Fatalf("revalidação: %v", err)
	}
	var n int
	conn.Model(&models.Pendency{}).Where("case_id = ? AND field_key = ? AND status = ?",
		kase.ID, "cpf", models.PENDENCY_STATUS_OPEN).Count(&n)
	if n != 1 {
		t.Fatalf("revalidação duplicou pendência: %d", n)
	}
}

func TestValidateCasoCompleto(t *testing.T) {
	conn := newTestDB(t)
	f := seedFixture(t, conn)
	kase := seedCase(t, conn, f, "doc_recebido")

	SetCaseField(conn, kase.ID, FIELD_CPF, "52998224725", models.FIELD_SOURCE_OCR, 0.9)
	SetCaseField(conn, kase.ID, FIELD_ORDER_TOTAL, "123456", models.FIELD_SOURCE_OCR, 0.9)

	job := models.Job{TenantID: f.Tenant.ID, Type: models.JOB_TYPE_VALIDATE_FIELDS,
		Payload:        fmt.Sprintf(`{"case_id":%d,"instance_id":%d}`, kase.ID, f.Instance.ID),
		IdempotencyKey: "validate-ok", Status: models.JOB_STATUS_PROCESSING}
	conn.Create(&job)
	if err := handleValidateFields(conn, &job); err != nil {
		t.Fatalf("handleValidateFields: %v", err)
	}

	var updated models.Case
	conn.First(&updated, kase.ID)
	if updated.Status != models.CASE_STATUS_READY_REVIEW {
		t.Fatalf("status = %q, esperado ready_review", updated.Status)
	}

	var n int
	conn.Model(&models.Job{}).Where("type = ?", models.JOB_TYPE_ASK_PENDENCIES).Count(&n)
	if n != 0 {
		t.Fatalf("caso completo não cobra pendência")
	}
}

func TestValidateCampoInvalido(t *testing.T) {
	conn := newTestDB(t)
	f := seedFixture(t, conn)
	kase := seedCase(t, conn, f, "doc_recebido")

	// CPF presente mas com dígito verificador errado.
	SetCaseField(conn, kase.ID, FIELD_CPF, "52998224724", models.FIELD_SOURCE_VENDOR, 1)

	job := models.Job{TenantID: f.Tenant.ID, Type: models.JOB_TYPE_VALIDATE_FIELDS,
		Payload:        fmt.Sprintf(`{"case_id":%d,"instance_id":%d}`, kase.ID, f.Instance.ID),
		IdempotencyKey: "validate-inv", Status: models.JOB_STATUS_PROCESSING}
	conn.Create(&job)
	if err := handleValidateFields(conn, &job); err != nil {
		t.Fatalf("handleValidateFields: %v", err)
	}

	var updated models.Case
	conn.First(&updated, kase.ID)
	if updated.Status != models.CASE_STATUS_PENDING_VENDOR {
		t.Fatalf("cpf inválido deveria segurar o caso em pending_vendor, veio %q", updated.Status)
	}
}
