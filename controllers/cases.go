package controllers

import (
	"net/http"

	dbpkg "venditto/db"
	"venditto/models"

	"github.com/gin-gonic/gin"
)

// GET /api/cases (admin)
// Filtros opcionais: ?tenant_id= & ?status=
func GetCases(c *gin.Context) {
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

	var cases []models.Case
	if err := q.Find(&cases).Error; err != nil {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}

	RespondSuccess(c, gin.H{"cases": cases})
}

// GET /api/cases/:id (admin)
// Devolve o agregado completo: caso + campos + itens + pendências + mensagens.
func GetCaseByID(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}

	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "db não configurado no contexto", http.StatusInternalServerError)
		return
	}

	var kase models.Case
	if err := db.First(&kase, id).Error; err != nil {
		RespondError(c, "caso não encontrado", http.StatusNotFound)
		return
	}

	var fields []models.CaseField
	db.Where("case_id = ?", kase.ID).Order("key asc").Find(&fields)

	var items []models.CaseItem
	db.Where("case_id = ?", kase.ID).Order("id asc").Find(&items)

	var pendencies []models.Pendency
	db.Where("case_id = ?", kase.ID).Order("id asc").Find(&pendencies)

	var messages []models.ChannelMessage
	db.Where("case_id = ?", kase.ID).Order("id asc").Find(&messages)

	RespondSuccess(c, gin.H{
		"case":       kase,
		"fields":     fields,
		"items":      items,
		"pendencies": pendencies,
		"messages":   messages,
	})
}
