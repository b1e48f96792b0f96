package models

import "time"

// Customer é a identidade do contraparte (cliente final) dentro do tenant.
// Phone guarda o formato canônico; o lookup usa o conjunto de variantes
// (com/sem DDI, com/sem o nono dígito) pra absorver drift de formato histórico.
type Customer struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID  int64      `gorm:"not null;index" json:"tenant_id"`
	Name      string     `gorm:"default:''" json:"name"`
	Phone     string     `gorm:"not null;index" json:"phone"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
