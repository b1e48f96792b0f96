package workers

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	dbpkg "venditto/db"
	"venditto/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// JobHandler executa um job já claimado. Erro (ou panic) marca só aquele job
// como failed; o resto do batch segue.
type JobHandler func(db *gorm.DB, job *models.Job) error

// Registro de handlers por tipo. Tipos de pipelines colaboradores dividem a
// mesma fila e o mesmo loop.
var jobHandlers = map[string]JobHandler{
	models.JOB_TYPE_OCR_IMAGE:        handleOCRImage,
	models.JOB_TYPE_TRANSCRIBE_AUDIO: handleTranscribeAudio,
	models.JOB_TYPE_EXTRACT_FIELDS:   handleExtractFields,
	models.JOB_TYPE_VALIDATE_FIELDS:  handleValidateFields,
	models.JOB_TYPE_ASK_PENDENCIES:   handleAskPendencies,
	models.JOB_TYPE_METRICS_ROLLUP:   handleMetricsRollup,
	models.JOB_TYPE_DAILY_SUMMARY:    handleDailySummary,
}

// StartJobProcessor starts a loop that claims and runs due pending jobs.
func StartJobProcessor(db *gorm.DB, interval time.Duration, batchSize int) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			ProcessDueJobs(db, batchSize)
		}
	}()
}

// ProcessDueJobs seleciona os N jobs pending mais antigos já vencidos e sem
// lock, e tenta claimar um a um. Também é chamado pelo trigger manual da API.
// Devolve quantos jobs este worker efetivamente processou.
func ProcessDueJobs(db *gorm.DB, batchSize int) int {
	now := time.Now()

	var jobs []models.Job
	if err := db.
		Where("status = ?", models.JOB_STATUS_PENDING).
		Where("lock_token = ?", "").
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Order("id asc").
		Limit(batchSize).
		Find(&jobs).Error; err != nil {
		log.Printf("jobs worker: query error: %v", err)
		return 0
	}

	processed := 0
	for i := range jobs {
		// lock otimista: só processa quem conseguir o update condicional
		token := uuid.NewString()
		res := db.Model(&models.Job{}).
			Where("id = ? AND status = ?", jobs[i].ID, models.JOB_STATUS_PENDING).
			Updates(map[string]any{
				"status":     models.JOB_STATUS_PROCESSING,
				"lock_token": token,
				"locked_at":  now,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}

		runJob(db, jobs[i].ID)
		processed++
	}
	return processed
}

func runJob(db *gorm.DB, jobID int64) {
	var job models.Job
	if err := db.First(&job, jobID).Error; err != nil {
		return
	}
	if job.Status != models.JOB_STATUS_PROCESSING {
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()

		handler, ok := jobHandlers[job.Type]
		if !ok {
			err = fmt.Errorf("tipo de job desconhecido: %s", job.Type)
			return
		}
		err = handler(db, &job)
	}()

	if err != nil {
		log.Printf("jobs worker: job %d (%s) failed: %v", job.ID, job.Type, err)
		_ = db.Model(&models.Job{}).Where("id = ?", job.ID).Updates(map[string]any{
			"status":     models.JOB_STATUS_FAILED,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": err.Error(),
		}).Error
		dbpkg.Audit(db, job.TenantID, jobCaseID(&job), "job_failed",
			fmt.Sprintf("job %s falhou: %v", job.Type, err), map[string]any{"job_id": job.ID})
		return
	}

	_ = db.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("status", models.JOB_STATUS_DONE).Error
}

// jobCaseID tenta extrair o case_id do payload pra enriquecer auditoria.
func jobCaseID(job *models.Job) *int64 {
	var p struct {
		CaseID int64 `json:"case_id"`
	}
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil || p.CaseID == 0 {
		return nil
	}
	return &p.CaseID
}

// EnqueueJob insere um job na fila. A idempotency key é unique: conflito
// significa "já enfileirado", não é erro.
func EnqueueJob(db *gorm.DB, tenantID int64, jobType string, payload map[string]any, idemKey string, notBefore *time.Time) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var existing models.Job
	if err := db.Where("idempotency_key = ?", idemKey).First(&existing).Error; err == nil {
		return nil
	}

	job := models.Job{
		TenantID:       tenantID,
		Type:           jobType,
		Payload:        string(b),
		IdempotencyKey: idemKey,
		Status:         models.JOB_STATUS_PENDING,
		ScheduledAt:    notBefore,
	}
	if job.ScheduledAt == nil {
		now := time.Now()
		job.ScheduledAt = &now
	}

	if err := db.Create(&job).Error; err != nil {
		// unique violation: outra entrega chegou primeiro
		if err := db.Where("idempotency_key = ?", idemKey).First(&existing).Error; err == nil {
			return nil
		}
		return err
	}
	return nil
}

// RequeueFailed volta jobs failed pra pending (requeue manual pós-incidente).
// Não há reaper de lease: jobs presos em processing exigem intervenção.
func RequeueFailed(db *gorm.DB, tenantID int64) (int64, error) {
	q := db.Model(&models.Job{}).Where("status = ?", models.JOB_STATUS_FAILED)
	if tenantID > 0 {
		q = q.Where("tenant_id = ?", tenantID)
	}
	res := q.Updates(map[string]any{
		"status":     models.JOB_STATUS_PENDING,
		"lock_token": "",
		"locked_at":  nil,
		"last_error": "",
	})
	return res.RowsAffected, res.Error
}
