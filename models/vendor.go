package models

import "time"

// Vendor é um vendedor do tenant que manda pedidos pelo canal.
// Identificado pelo telefone; remetente-vendedor muda o roteamento de caso
// (fluxos legados) e habilita o gating require_vendor da jornada.
type Vendor struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID  int64      `gorm:"not null;index" json:"tenant_id"`
	Name      string     `gorm:"default:''" json:"name"`
	Phone     string     `gorm:"not null;index" json:"phone"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
