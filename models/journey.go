package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

/************************************************
/**** MARK: PENDENCY / FIELD ROLES ****/
/************************************************/
const ROLE_VENDOR = "vendor"
const ROLE_ADMIN = "admin"
const ROLE_LEADER = "leader"

// Journey é o template de workflow configurável por tenant: conjunto ordenado
// de estados, estado default e tabela de ações por transição. O executor de
// ações (triggers) é um colaborador externo; aqui a gente só carrega e valida.
type Journey struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	TenantID   int64      `gorm:"not null;index" json:"tenant_id"`
	Name       string     `gorm:"not null" json:"name"`
	Enabled    bool       `gorm:"not null;default:true;index" json:"enabled"`
	CRMCapable bool       `gorm:"column:crm_capable;not null;default:false" json:"crm_capable"`
	Config     string     `gorm:"type:text" json:"config"` // JSON, ver JourneyConfig
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// JourneyAction é uma ação disparada numa transição (executada fora daqui).
type JourneyAction struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// JourneyField declara um campo exigido pela jornada para o caso ficar pronto.
type JourneyField struct {
	Key      string `json:"key"`
	Label    string `json:"label,omitempty"`
	Role     string `json:"role,omitempty"` // vendor|admin|leader (default vendor)
	Required bool   `json:"required"`
}

// JourneyConfig é o schema tipado do blob de configuração da jornada.
// Antes isso era JSON lido com lookup de caminho pontuado em cada call site;
// agora é parseado e validado uma única vez no load.
type JourneyConfig struct {
	States      []string                   `json:"states"`
	Default     string                     `json:"default"`
	Transitions map[string][]JourneyAction `json:"transitions,omitempty"`

	// Gating de criação de caso por tipo de evento.
	CreateOnText     bool `json:"create_on_text"`
	CreateOnImage    bool `json:"create_on_image"`
	CreateOnLocation bool `json:"create_on_location"`

	// Se true, evento de remetente não identificado como vendedor não abre caso.
	RequireVendor bool `json:"require_vendor"`

	// Hints de estado inicial. Vazio = default da jornada, ou o primeiro estado.
	InitialState      string `json:"initial_state,omitempty"`
	ImageInitialState string `json:"image_initial_state,omitempty"`

	RequiredFields []JourneyField `json:"required_fields,omitempty"`
}

// HasState informa se name pertence ao conjunto de estados da jornada.
func (jc *JourneyConfig) HasState(name string) bool {
	for _, s := range jc.States {
		if s == name {
			return true
		}
	}
	return false
}

// EntryState resolve o estado inicial para um novo caso: hint configurado ->
// default declarado -> primeiro estado. forImage dá preferência ao hint de imagem.
func (jc *JourneyConfig) EntryState(forImage bool) string {
	if forImage && jc.ImageInitialState != "" {
		return jc.ImageInitialState
	}
	if jc.InitialState != "" {
		return jc.InitialState
	}
	if jc.Default != "" {
		return jc.Default
	}
	return jc.States[0]
}

// ParseJourneyConfig parseia e valida o JSON de configuração.
// Falha de validação aqui é erro de configuração do tenant (fatal pro request).
func ParseJourneyConfig(raw string) (*JourneyConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("journey config vazio")
	}

	var jc JourneyConfig
	if err := json.Unmarshal([]byte(raw), &jc); err != nil {
		return nil, fmt.Errorf("journey config inválido: %w", err)
	}

	if len(jc.States) == 0 {
		return nil, fmt.Errorf("journey config sem estados")
	}
	seen := map[string]bool{}
	for _, s := range jc.States {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("journey config com estado vazio")
		}
		if seen[s] {
			return nil, fmt.Errorf("journey config com estado duplicado: %s", s)
		}
		seen[s] = true
	}

	if jc.Default != "" && !jc.HasState(jc.Default) {
		return nil, fmt.Errorf("estado default %q não declarado", jc.Default)
	}
	if jc.InitialState != "" && !jc.HasState(jc.InitialState) {
		return nil, fmt.Errorf("initial_state %q não declarado", jc.InitialState)
	}
	if jc.ImageInitialState != "" && !jc.HasState(jc.ImageInitialState) {
		return nil, fmt.Errorf("image_initial_state %q não declarado", jc.ImageInitialState)
	}

	// Chaves de transição: "{from}->{to}" ou "->{to}" (entrada).
	for key := range jc.Transitions {
		parts := strings.SplitN(key, "->", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("chave de transição inválida: %q", key)
		}
		if parts[0] != "" && !jc.HasState(parts[0]) {
			return nil, fmt.Errorf("transição %q: estado de origem não declarado", key)
		}
		if !jc.HasState(parts[1]) {
			return nil, fmt.Errorf("transição %q: estado de destino não declarado", key)
		}
	}

	for i, f := range jc.RequiredFields {
		if strings.TrimSpace(f.Key) == "" {
			return nil, fmt.Errorf("required_fields[%d] sem key", i)
		}
		switch f.Role {
		case "", ROLE_VENDOR, ROLE_ADMIN, ROLE_LEADER:
		default:
			return nil, fmt.Errorf("required_fields[%d] com role inválido: %q", i, f.Role)
		}
	}

	return &jc, nil
}

// ParsedConfig é o atalho usado pelos handlers (config validado no load).
func (j *Journey) ParsedConfig() (*JourneyConfig, error) {
	return ParseJourneyConfig(j.Config)
}
