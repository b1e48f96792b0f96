package workers

import (
	"strings"

	"venditto/models"

	"github.com/jinzhu/gorm"
)

// SetCaseField grava um fato no caso respeitando a hierarquia de confiança:
// escrita de fonte mais fraca nunca sobrescreve valor de fonte mais forte.
// Em particular, source=admin (edição manual) é autoritativo pra sempre.
// Devolve true se a escrita aconteceu.
func SetCaseField(db *gorm.DB, caseID int64, key, value, source string, confidence float64) bool {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return false
	}

	var existing models.CaseField
	err := db.Where("case_id = ? AND key = ?", caseID, key).First(&existing).Error
	if err != nil {
		field := models.CaseField{
			CaseID:     caseID,
			Key:        key,
			Value:      value,
			Source:     source,
			Confidence: confidence,
		}
		return db.Create(&field).Error == nil
	}

	if models.TrustLevel(existing.Source) > models.TrustLevel(source) {
		// valor atual veio de fonte mais confiável; escrita suprimida
		return false
	}

	return db.Model(&models.CaseField{}).Where("id = ?", existing.ID).Updates(map[string]any{
		"value":      value,
		"source":     source,
		"confidence": confidence,
	}).Error == nil
}

// GetCaseField lê um campo do caso ("" quando ausente).
func GetCaseField(db *gorm.DB, caseID int64, key string) string {
	var field models.CaseField
	if err := db.Where("case_id = ? AND key = ?", caseID, key).First(&field).Error; err != nil {
		return ""
	}
	return field.Value
}
