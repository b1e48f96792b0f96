package workers

import (
	"fmt"
	"time"

	dbpkg "venditto/db"
	"venditto/models"

	"github.com/jinzhu/gorm"
)

// Handlers dos pipelines colaboradores: jobs periódicos que compartilham a
// fila com o pipeline principal. O produto deles é um snapshot na auditoria,
// que o dashboard consome direto.

// handleMetricsRollup consolida a contagem de casos por status do tenant.
func handleMetricsRollup(db *gorm.DB, job *models.Job) error {
	counts := map[string]any{}
	for _, status := range []string{
		models.CASE_STATUS_OPEN,
		models.CASE_STATUS_PENDING_VENDOR,
		models.CASE_STATUS_READY_REVIEW,
		models.CASE_STATUS_CLOSED,
	} {
		var n int
		if err := db.Model(&models.Case{}).
			Where("tenant_id = ? AND status = ?", job.TenantID, status).
			Count(&n).Error; err != nil {
			return err
		}
		counts[status] = n
	}

	dbpkg.Audit(db, job.TenantID, nil, "metrics_rollup",
		"snapshot de casos por status", counts)
	return nil
}

// handleDailySummary resume a atividade das últimas 24h do tenant.
func handleDailySummary(db *gorm.DB, job *models.Job) error {
	since := time.Now().Add(-24 * time.Hour)

	var created, merged, answered, failed int
	if err := db.Model(&models.Case{}).
		Where("tenant_id = ? AND created_at >= ?", job.TenantID, since).
		Count(&created).Error; err != nil {
		return err
	}
	if err := db.Unscoped().Model(&models.Case{}).
		Where("tenant_id = ? AND deleted_at >= ?", job.TenantID, since).
		Count(&merged).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Pendency{}).
		Where("tenant_id = ? AND status = ? AND answered_at >= ?",
			job.TenantID, models.PENDENCY_STATUS_ANSWERED, since).
		Count(&answered).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Job{}).
		Where("tenant_id = ? AND status = ?", job.TenantID, models.JOB_STATUS_FAILED).
		Count(&failed).Error; err != nil {
		return err
	}

	dbpkg.Audit(db, job.TenantID, nil, "daily_summary",
		fmt.Sprintf("últimas 24h: %d caso(s) novo(s), %d fundido(s), %d pendência(s) respondida(s)",
			created, merged, answered),
		map[string]any{
			"cases_created":       created,
			"cases_merged":        merged,
			"pendencies_answered": answered,
			"jobs_failed":         failed,
		})
	return nil
}
