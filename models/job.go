package models

import "time"

/************************************************
/**** MARK: JOB STATUS ****/
/************************************************/
const JOB_STATUS_PENDING = "pending"
const JOB_STATUS_PROCESSING = "processing"
const JOB_STATUS_DONE = "done"
const JOB_STATUS_FAILED = "failed"

/************************************************
/**** MARK: JOB TYPES ****/
/************************************************/
const JOB_TYPE_OCR_IMAGE = "OCR_IMAGE"
const JOB_TYPE_TRANSCRIBE_AUDIO = "TRANSCRIBE_AUDIO"
const JOB_TYPE_EXTRACT_FIELDS = "EXTRACT_FIELDS"
const JOB_TYPE_VALIDATE_FIELDS = "VALIDATE_FIELDS"
const JOB_TYPE_ASK_PENDENCIES = "ASK_PENDENCIES"

// Tipos de pipelines colaboradores que compartilham a mesma fila/worker.
const JOB_TYPE_METRICS_ROLLUP = "METRICS_ROLLUP"
const JOB_TYPE_DAILY_SUMMARY = "DAILY_SUMMARY"

// Job é uma unidade de trabalho assíncrono na fila de polling.
// Claim por update condicional pending->processing com lock token; não há
// lease/expiração: worker que morre no meio deixa o job em processing
// (requeue é manual, ver POST /api/jobs/requeue-failed).
type Job struct {
	ID             int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID       int64      `gorm:"not null;index" json:"tenant_id"`
	Type           string     `gorm:"not null;index" json:"type"`
	Payload        string     `gorm:"type:text" json:"payload"` // JSON
	IdempotencyKey string     `gorm:"not null;unique_index" json:"idempotency_key"`
	Status         string     `gorm:"not null;default:'pending';index" json:"status"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	LockToken      string     `gorm:"default:''" json:"lock_token"`
	LockedAt       *time.Time `json:"locked_at"`
	ScheduledAt    *time.Time `gorm:"index" json:"scheduled_at"`
	LastError      string     `gorm:"type:text" json:"last_error"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}
