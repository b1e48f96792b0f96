package models

import "time"

// CaseItem é uma linha de item do pedido extraída do documento (ou digitada).
// No merge de duplicados os itens do caso mantido têm precedência: os do
// perdedor só migram se o mantido não tiver nenhum.
type CaseItem struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CaseID      int64      `gorm:"not null;index" json:"case_id"`
	Description string     `gorm:"not null" json:"description"`
	Quantity    float64    `gorm:"not null;default:1" json:"quantity"`
	UnitCents   int64      `gorm:"not null;default:0" json:"unit_cents"`
	TotalCents  int64      `gorm:"not null;default:0" json:"total_cents"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
