package controllers

import (
	"net/http"
	"strconv"

	dbpkg "venditto/db"
	"venditto/models"
	"venditto/workers"

	"github.com/gin-gonic/gin"
)

// GET /api/jobs (admin)
// Filtros opcionais: ?tenant_id= & ?status= & ?type=
func GetJobs(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	q := db.Order("id desc").Limit(200)
	if tenant := c.Query("tenant_id"); tenant != "" {
		q = q.Where("tenant_id = ?", tenant)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if jobType := c.Query("type"); jobType != "" {
		q = q.Where("type = ?", jobType)
	}

	var jobs []models.Job
	if err := q.Find(&jobs).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	RespondSuccess(c, gin.H{"jobs": jobs})
}

// POST /api/jobs/run (admin)
// Trigger manual do worker: processa um batch agora, sem esperar o ticker.
func RunJobs(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	batch := 50
	if v := c.Query("batch"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			RespondError(c, "batch inválido", http.StatusBadRequest)
			return
		}
		batch = n
	}

	processed := workers.ProcessDueJobs(db, batch)
	RespondSuccess(c, gin.H{"processed": processed})
}

// POST /api/jobs/requeue-failed (admin)
// Volta jobs failed pra pending. ?tenant_id= limita o requeue a um tenant.
func RequeueFailedJobs(c *gin.Context) {
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	var tenantID int64
	if v := c.Query("tenant_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			RespondError(c, "tenant_id inválido", http.StatusBadRequest)
			return
		}
		tenantID = n
	}

	requeued, err := workers.RequeueFailed(db, tenantID)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"requeued": requeued})
}
