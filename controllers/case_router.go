package controllers

import (
	"fmt"
	"strconv"
	"strings"

	dbpkg "venditto/db"
	"venditto/models"
	"venditto/tools"

	"github.com/jinzhu/gorm"
)

// RouteResult descreve o que o roteador decidiu pro evento inbound.
type RouteResult struct {
	Case    *models.Case // nil quando o evento fica desvinculado
	Created bool
	Journey *models.Journey
	Config  *models.JourneyConfig
	Vendor  *models.Vendor
}

// ErrNoJourney indica tenant sem jornada resolvível: erro de configuração,
// fatal pro request (500), não adianta retry.
var ErrNoJourney = fmt.Errorf("nenhuma jornada configurada para o tenant")

// ResolveJourney resolve a jornada alvo: default da instância -> primeira
// jornada habilitada do tenant -> jornada de nome "default".
func ResolveJourney(db *gorm.DB, instance *models.Instance) (*models.Journey, *models.JourneyConfig, error) {
	var journey models.Journey

	if instance.DefaultJourneyID > 0 {
		if err := db.Where("tenant_id = ? AND enabled = ?", instance.TenantID, true).
			First(&journey, instance.DefaultJourneyID).Error; err == nil {
			return parsedJourney(&journey)
		}
	}

	if err := db.Where("tenant_id = ? AND enabled = ?", instance.TenantID, true).
		Order("id asc").First(&journey).Error; err == nil {
		return parsedJourney(&journey)
	}

	if err := db.Where("tenant_id = ? AND name = ?", instance.TenantID, "default").
		First(&journey).Error; err == nil {
		return parsedJourney(&journey)
	}

	return nil, nil, ErrNoJourney
}

func parsedJourney(j *models.Journey) (*models.Journey, *models.JourneyConfig, error) {
	cfg, err := j.ParsedConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("jornada %d: %w", j.ID, err)
	}
	return j, cfg, nil
}

// resolveCustomer acha (ou cria) a identidade do cliente pelas variantes de
// telefone. Dedup best-effort: drift de formato histórico resolve pra mesma
// identidade.
func resolveCustomer(db *gorm.DB, tenantID int64, phone string) (*models.Customer, error) {
	variants := tools.PhoneVariants(phone)
	if len(variants) == 0 {
		return nil, fmt.Errorf("telefone inválido: %q", phone)
	}

	var customer models.Customer
	if err := db.Where("tenant_id = ? AND phone IN (?)", tenantID, variants).
		Order("id asc").First(&customer).Error; err == nil {
		return &customer, nil
	}

	canonical, err := tools.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	customer = models.Customer{TenantID: tenantID, Phone: canonical}
	if err := db.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func findVendorByPhone(db *gorm.DB, tenantID int64, phone string) *models.Vendor {
	variants := tools.PhoneVariants(phone)
	if len(variants) == 0 {
		return nil
	}
	var vendor models.Vendor
	if err := db.Where("tenant_id = ? AND phone IN (?)", tenantID, variants).
		First(&vendor).Error; err != nil {
		return nil
	}
	return &vendor
}

// findExistingCase procura um caso aberto pro contraparte, na ordem de
// preferência: vínculo por vendedor (fluxo legado) -> vínculo por cliente em
// jornada CRM -> qualquer caso aberto do cliente -> match de telefone no
// metadata (incluindo soft-deleted, pra reativação).
func findExistingCase(db *gorm.DB, tenantID int64, vendor *models.Vendor, customer *models.Customer, phone string) *models.Case {
	var kase models.Case

	if vendor != nil {
		if err := db.Where("tenant_id = ? AND vendor_id = ? AND status <> ?",
			tenantID, vendor.ID, models.CASE_STATUS_CLOSED).
			Order("id desc").First(&kase).Error; err == nil {
			return &kase
		}
	}

	if customer != nil {
		var crmIDs []int64
		var journeys []models.Journey
		if err := db.Where("tenant_id = ? AND crm_capable = ? AND enabled = ?", tenantID, true, true).
			Find(&journeys).Error; err == nil {
			for _, j := range journeys {
				crmIDs = append(crmIDs, j.ID)
			}
		}

		if len(crmIDs) > 0 {
			if err := db.Where("tenant_id = ? AND customer_id = ? AND journey_id IN (?) AND status <> ?",
				tenantID, customer.ID, crmIDs, models.CASE_STATUS_CLOSED).
				Order("id desc").First(&kase).Error; err == nil {
				return &kase
			}
		}

		if err := db.Where("tenant_id = ? AND customer_id = ? AND status <> ?",
			tenantID, customer.ID, models.CASE_STATUS_CLOSED).
			Order("id desc").First(&kase).Error; err == nil {
			return &kase
		}
	}

	// Fallback: telefone guardado no metadata. Casos antigos entraram sem
	// customer_id; Unscoped inclui deletados pra permitir reativação. O bag é
	// JSON texto, então o LIKE contra as variantes estreita no banco e o
	// MetaGet confirma o match (nada de janela dos N mais recentes aqui).
	variants := tools.PhoneVariants(phone)
	if len(variants) == 0 {
		return nil
	}
	var conds []string
	var args []any
	for _, key := range []string{models.META_COUNTERPART_PHONE, models.META_CUSTOMER_PHONE} {
		for _, v := range variants {
			conds = append(conds, "metadata LIKE ?")
			args = append(args, fmt.Sprintf(`%%"%s":"%s"%%`, key, v))
		}
	}

	var candidates []models.Case
	if err := db.Unscoped().Where("tenant_id = ?", tenantID).
		Where(strings.Join(conds, " OR "), args...).
		Order("id desc").Find(&candidates).Error; err != nil {
		return nil
	}
	for i := range candidates {
		k := &candidates[i]
		if k.Status == models.CASE_STATUS_CLOSED && k.DeletedAt == nil {
			continue
		}
		for _, key := range []string{models.META_COUNTERPART_PHONE, models.META_CUSTOMER_PHONE} {
			if stored := k.MetaGet(key); stored != "" && tools.SamePhone(stored, phone) {
				return k
			}
		}
	}

	return nil
}

// RouteInboundCase aplica as regras de roteamento/promoção/criação pra um
// evento inbound normalizado. Toda decisão vira entrada de auditoria.
func RouteInboundCase(db *gorm.DB, instance *models.Instance, ev NormalizedEvent) (*RouteResult, error) {
	journey, cfg, err := ResolveJourney(db, instance)
	if err != nil {
		return nil, err
	}

	result := &RouteResult{Journey: journey, Config: cfg}
	phone := stripJid(ev.From)

	result.Vendor = findVendorByPhone(db, instance.TenantID, phone)

	customer, err := resolveCustomer(db, instance.TenantID, phone)
	if err != nil {
		return nil, err
	}

	if existing := findExistingCase(db, instance.TenantID, result.Vendor, customer, phone); existing != nil {
		kase, err := promoteCase(db, existing, journey, cfg)
		if err != nil {
			return nil, err
		}
		result.Case = kase
		return result, nil
	}

	// Criação gated por configuração da jornada.
	allowed := false
	switch ev.Type {
	case models.MESSAGE_TYPE_TEXT, models.MESSAGE_TYPE_AUDIO:
		allowed = cfg.CreateOnText
	case models.MESSAGE_TYPE_IMAGE:
		allowed = cfg.CreateOnImage
	case models.MESSAGE_TYPE_LOCATION:
		allowed = cfg.CreateOnLocation
	}
	if !allowed {
		dbpkg.Audit(db, instance.TenantID, nil, "case_skipped",
			"criação de caso desabilitada para o tipo "+ev.Type, map[string]any{"from": phone})
		return result, nil
	}

	if cfg.RequireVendor && result.Vendor == nil {
		// Evento fica armazenado desvinculado; vendedor não identificado.
		dbpkg.Audit(db, instance.TenantID, nil, "case_skipped_no_vendor",
			"require_vendor ativo e remetente não é vendedor", map[string]any{"from": phone})
		return result, nil
	}

	kase := &models.Case{
		TenantID:   instance.TenantID,
		JourneyID:  journey.ID,
		State:      cfg.EntryState(ev.Type == models.MESSAGE_TYPE_IMAGE),
		Status:     models.CASE_STATUS_OPEN,
		CustomerID: &customer.ID,
	}
	if result.Vendor != nil {
		kase.VendorID = &result.Vendor.ID
		kase.MetaSet(models.META_SENDER_IS_VENDOR, "true")
	}
	canonical, _ := tools.NormalizePhone(phone)
	kase.MetaSet(models.META_COUNTERPART_PHONE, canonical)
	kase.MetaSet(models.META_ORIGIN_CHANNEL, "whatsapp")

	if err := db.Create(kase).Error; err != nil {
		return nil, err
	}

	dbpkg.Audit(db, instance.TenantID, &kase.ID, "case_created",
		"caso criado no estado "+kase.State+" (jornada "+journey.Name+")",
		map[string]any{"event_type": ev.Type, "from": phone})

	result.Case = kase
	result.Created = true
	return result, nil
}

// promoteCase aplica as regras de promoção num caso encontrado:
// deletado -> reativa preservando is_chat; is_chat vivo -> reusa como está;
// senão move pra jornada CRM, reseta pro estado inicial dela e reabre.
func promoteCase(db *gorm.DB, kase *models.Case, journey *models.Journey, cfg *models.JourneyConfig) (*models.Case, error) {
	if kase.DeletedAt != nil {
		if err := db.Unscoped().Model(&models.Case{}).Where("id = ?", kase.ID).
			Updates(map[string]any{"deleted_at": nil, "status": models.CASE_STATUS_OPEN}).Error; err != nil {
			return nil, err
		}
		kase.DeletedAt = nil
		kase.Status = models.CASE_STATUS_OPEN
		dbpkg.Audit(db, kase.TenantID, &kase.ID, "case_reactivated",
			"caso soft-deleted reativado (is_chat preservado)", nil)
		return kase, nil
	}

	if kase.IsChat {
		dbpkg.Audit(db, kase.TenantID, &kase.ID, "case_reused",
			"caso is_chat reusado sem promoção", nil)
		return kase, nil
	}

	// Promoção pra jornada CRM: só quando a jornada resolvida é CRM-capable
	// e o caso ainda não está nela.
	if journey.CRMCapable && kase.JourneyID != journey.ID {
		updates := map[string]any{
			"journey_id": journey.ID,
			"state":      cfg.EntryState(false),
			"status":     models.CASE_STATUS_OPEN,
		}
		if err := db.Model(&models.Case{}).Where("id = ?", kase.ID).Updates(updates).Error; err != nil {
			return nil, err
		}
		kase.JourneyID = journey.ID
		kase.State = cfg.EntryState(false)
		kase.Status = models.CASE_STATUS_OPEN
		dbpkg.Audit(db, kase.TenantID, &kase.ID, "case_promoted",
			"caso movido pra jornada CRM "+journey.Name+" (estado "+kase.State+")", nil)
		return kase, nil
	}

	if kase.Status != models.CASE_STATUS_OPEN {
		if err := db.Model(&models.Case{}).Where("id = ?", kase.ID).
			Update("status", models.CASE_STATUS_OPEN).Error; err != nil {
			return nil, err
		}
		kase.Status = models.CASE_STATUS_OPEN
		dbpkg.Audit(db, kase.TenantID, &kase.ID, "case_reopened", "caso reaberto", nil)
	} else {
		dbpkg.Audit(db, kase.TenantID, &kase.ID, "case_routed",
			"evento roteado pro caso existente", nil)
	}

	return kase, nil
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
