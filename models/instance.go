package models

import "time"

/************************************************
/**** MARK: INSTANCE STATUS ****/
/************************************************/
const INSTANCE_STATUS_ACTIVE = "active"
const INSTANCE_STATUS_DISABLED = "disabled"

// Instance é o endpoint de mensageria de um tenant: um número de telefone
// registrado no provedor, com seu segredo de webhook e jornada padrão.
// Criada no onboarding do tenant; depois disso é read-mostly.
type Instance struct {
	ID               int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID         int64      `gorm:"not null;index" json:"tenant_id"`
	Identifier       string     `gorm:"not null;unique_index" json:"identifier"` // id do provedor, usado na URL do webhook
	PhoneNumber      string     `gorm:"not null" json:"phone_number"`            // número próprio, formato canônico
	WebhookSecret    string     `gorm:"not null" json:"-"`
	DefaultJourneyID int64      `gorm:"default:0" json:"default_journey_id"`
	PhoneNumberID    string     `gorm:"column:phone_number_id" json:"phone_number_id"` // WhatsApp Cloud API
	AccessToken      string     `gorm:"column:access_token" json:"-"`
	ApiVersion       string     `gorm:"column:api_version;default:'v24.0'" json:"api_version"`
	Status           string     `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}
