package workers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"venditto/models"
	"venditto/tools"

	"github.com/jinzhu/gorm"
)

/************************************************
/**** MARK: CASE FIELD KEYS ****/
/************************************************/
const FIELD_CLIENT_NAME = "client_name"
const FIELD_CPF = "cpf"
const FIELD_CNPJ = "cnpj"
const FIELD_ORDER_TOTAL = "order_total"
const FIELD_ORDER_DATE = "order_date"

// Confiança por estratégia: o reconhecedor de formulário (linha "Rótulo:
// valor") é mais preciso que o regex solto no texto inteiro.
const confidenceForm = 0.9
const confidenceRegex = 0.7

type extractPayload struct {
	CaseID       int64 `json:"case_id"`
	AttachmentID int64 `json:"attachment_id"`
	InstanceID   int64 `json:"instance_id"`
}

// extractedItem é uma linha de item reconhecida no documento.
type extractedItem struct {
	Quantity    float64
	Description string
	TotalCents  int64
}

// handleExtractFields transforma o texto de OCR do caso em CaseFields e
// CaseItems, calcula o fingerprint e aplica merge de duplicado. Termina
// agendando a validação no caso mantido.
func handleExtractFields(db *gorm.DB, job *models.Job) error {
	var p extractPayload
	if err := json.Unmarshal([]byte(job.Payload), &p); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}

	var kase models.Case
	if err := db.First(&kase, p.CaseID).Error; err != nil {
		// Caso já fundido num duplicado: no-op idempotente.
		if !db.Unscoped().First(&kase, p.CaseID).RecordNotFound() {
			return nil
		}
		return fmt.Errorf("caso %d não encontrado", p.CaseID)
	}

	var atts []models.Attachment
	if err := db.Where("case_id = ?", kase.ID).Order("id asc").Find(&atts).Error; err != nil {
		return err
	}
	var parts []string
	for _, a := range atts {
		if strings.TrimSpace(a.OCRText) != "" {
			parts = append(parts, a.OCRText)
		}
	}
	if len(parts) == 0 {
		return fmt.Errorf("caso %d sem texto de OCR", kase.ID)
	}
	text := strings.Join(parts, "\n")

	var tenant models.Tenant
	if err := db.First(&tenant, kase.TenantID).Error; err == nil {
		text = StripBoilerplate(text, tenant.Name, tenant.Document)
	}

	// Estratégia 1: reconhecedor de formulário (preferencial).
	fields := ExtractFormFields(text)
	for key, value := range fields {
		SetCaseField(db, kase.ID, key, value, models.FIELD_SOURCE_OCR, confidenceForm)
	}

	// Estratégia 2: regex linha-a-linha preenche o que faltou.
	for key, value := range ExtractLooseFields(text) {
		if _, ok := fields[key]; ok {
			continue
		}
		SetCaseField(db, kase.ID, key, value, models.FIELD_SOURCE_OCR, confidenceRegex)
	}

	// Itens: re-entrada idempotente, só insere se o caso ainda não tem.
	var itemCount int
	db.Model(&models.CaseItem{}).Where("case_id = ?", kase.ID).Count(&itemCount)
	if itemCount == 0 {
		for _, it := range ExtractItems(text) {
			item := models.CaseItem{
				CaseID:      kase.ID,
				Description: it.Description,
				Quantity:    it.Quantity,
				TotalCents:  it.TotalCents,
			}
			_ = db.Create(&item).Error
		}
	}

	keeper, err := ApplyFingerprintAndMerge(db, &kase)
	if err != nil {
		return err
	}

	return EnqueueJob(db, job.TenantID, models.JOB_TYPE_VALIDATE_FIELDS, map[string]any{
		"case_id":     keeper.ID,
		"instance_id": p.InstanceID,
	}, fmt.Sprintf("validate:%d:%d", keeper.ID, job.ID), nil)
}

// Rótulos aceitos no modo formulário, por campo canônico.
var formLabels = map[string][]string{
	FIELD_CLIENT_NAME: {"cliente", "client", "nome do cliente", "razao social"},
	FIELD_CPF:         {"cpf"},
	FIELD_CNPJ:        {"cnpj"},
	FIELD_ORDER_TOTAL: {"total", "valor total", "total geral", "total do pedido"},
	FIELD_ORDER_DATE:  {"data", "data do pedido", "emissao", "data de emissao"},
}

var formLineRe = regexp.MustCompile(`^\s*([^:]{2,40}):\s*(.+)$`)

// ExtractFormFields lê linhas "Rótulo: valor" (saída típica de documento
// tabular transcrito) e devolve os campos canônicos reconhecidos.
func ExtractFormFields(text string) map[string]string {
	out := map[string]string{}

	for _, line := range strings.Split(text, "\n") {
		m := formLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := tools.NormalizeText(m[1])
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}

		for key, labels := range formLabels {
			if _, done := out[key]; done {
				continue
			}
			for _, l := range labels {
				if label == l {
					out[key] = normalizeFieldValue(key, value)
					break
				}
			}
		}
	}

	// descarta valores que não normalizaram
	for k, v := range out {
		if v == "" {
			delete(out, k)
		}
	}
	return out
}

var (
	cpfRe   = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	cnpjRe  = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)
	dateRe  = regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`)
	moneyRe = regexp.MustCompile(`R?\$?\s*\d{1,3}(?:\.\d{3})*,\d{2}|\d+[.,]\d{2}`)
)

// ExtractLooseFields é o fallback: regex solto sobre o texto inteiro, usado
// pra preencher o que o modo formulário não achou.
func ExtractLooseFields(text string) map[string]string {
	out := map[string]string{}

	if m := cpfRe.FindString(text); m != "" && tools.ValidateCPF(m) {
		out[FIELD_CPF] = tools.OnlyDigits(m)
	}
	if m := cnpjRe.FindString(text); m != "" && tools.ValidateCNPJ(m) {
		out[FIELD_CNPJ] = tools.OnlyDigits(m)
	}
	if m := dateRe.FindString(text); m != "" {
		if d, ok := tools.ParseDateBR(m); ok {
			out[FIELD_ORDER_DATE] = d
		}
	}

	// Total: prioriza a linha com keyword "total"; senão o maior valor visto.
	var best int64
	for _, line := range strings.Split(text, "\n") {
		m := moneyRe.FindString(line)
		if m == "" {
			continue
		}
		cents, ok := tools.ParseMoneyCents(m)
		if !ok || cents <= 0 {
			continue
		}
		if strings.Contains(tools.NormalizeText(line), "total") {
			best = cents
			break
		}
		if cents > best {
			best = cents
		}
	}
	if best > 0 {
		out[FIELD_ORDER_TOTAL] = strconv.FormatInt(best, 10)
	}

	return out
}

func normalizeFieldValue(key, value string) string {
	switch key {
	case FIELD_CPF:
		if !tools.ValidateCPF(value) {
			return ""
		}
		return tools.OnlyDigits(value)
	case FIELD_CNPJ:
		if !tools.ValidateCNPJ(value) {
			return ""
		}
		return tools.OnlyDigits(value)
	case FIELD_ORDER_TOTAL:
		cents, ok := tools.ParseMoneyCents(value)
		if !ok || cents <= 0 {
			return ""
		}
		return strconv.FormatInt(cents, 10)
	case FIELD_ORDER_DATE:
		d, ok := tools.ParseDateBR(value)
		if !ok {
			return ""
		}
		return d
	}
	return value
}

var itemLineRe = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*[xX]\s+(.+?)(?:\s+(R?\$?\s*[\d.,]+))?\s*$`)

// ExtractItems reconhece linhas de item no formato "2x Descrição ... 45,90".
func ExtractItems(text string) []extractedItem {
	var out []extractedItem

	for _, line := range strings.Split(text, "\n") {
		m := itemLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		qty, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil || qty <= 0 {
			continue
		}

		desc := strings.TrimSpace(m[2])
		if desc == "" {
			continue
		}

		item := extractedItem{Quantity: qty, Description: desc}
		if m[3] != "" {
			if cents, ok := tools.ParseMoneyCents(m[3]); ok {
				item.TotalCents = cents
			}
		}
		out = append(out, item)
	}

	return out
}
