package workers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	dbpkg "venditto/db"
	"venditto/models"
	"venditto/tools"

	"github.com/jinzhu/gorm"
)

// Limiares mínimos pros três sinais do fingerprint. Dado esparso não gera
// fingerprint nenhum: merge por acidente é bem pior que duplicado esquecido.
const minClientKeyLen = 3
const minItemLineLen = 4

// ComputeFingerprint deriva o hash de conteúdo do pedido a partir de
// (identidade do cliente, total em centavos, linhas de item normalizadas).
// Devolve ("", false) quando qualquer sinal está abaixo do limiar.
func ComputeFingerprint(clientKey string, totalCents int64, itemLines []string) (string, bool) {
	client := tools.NormalizeText(clientKey)
	if len(client) < minClientKeyLen {
		return "", false
	}
	if totalCents <= 0 {
		return "", false
	}

	var items []string
	for _, line := range itemLines {
		n := tools.NormalizeText(line)
		if len(n) >= minItemLineLen {
			items = append(items, n)
		}
	}
	if len(items) == 0 {
		return "", false
	}

	h := sha256.Sum256([]byte(client + "|" + strconv.FormatInt(totalCents, 10) + "|" + strings.Join(items, "\n")))
	return hex.EncodeToString(h[:]), true
}

// ApplyFingerprintAndMerge calcula o fingerprint do caso a partir dos campos
// e itens extraídos, grava no metadata e procura outro caso vivo do tenant
// com o mesmo fingerprint. Achou: o caso novo é fundido no existente
// (mensagens/anexos/pendências migram, caso novo vira soft-deleted) e o
// retorno passa a ser o caso mantido — toda escrita subsequente do request
// precisa mirar nele.
func ApplyFingerprintAndMerge(db *gorm.DB, kase *models.Case) (*models.Case, error) {
	clientKey := GetCaseField(db, kase.ID, FIELD_CLIENT_NAME)
	if clientKey == "" {
		clientKey = GetCaseField(db, kase.ID, FIELD_CPF)
	}
	if clientKey == "" {
		clientKey = GetCaseField(db, kase.ID, FIELD_CNPJ)
	}

	var totalCents int64
	if raw := GetCaseField(db, kase.ID, FIELD_ORDER_TOTAL); raw != "" {
		totalCents, _ = strconv.ParseInt(raw, 10, 64)
	}

	var items []models.CaseItem
	if err := db.Where("case_id = ?", kase.ID).Find(&items).Error; err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Description)
	}

	fp, ok := ComputeFingerprint(clientKey, totalCents, lines)
	if !ok {
		return kase, nil
	}

	kase.MetaSet(models.META_FINGERPRINT, fp)
	kase.MetaSet(models.META_TOTAL_CENTS, strconv.FormatInt(totalCents, 10))
	kase.MetaSet(models.META_CLIENT_KEY, tools.NormalizeText(clientKey))
	if err := db.Model(&models.Case{}).Where("id = ?", kase.ID).
		Update("metadata", kase.Metadata).Error; err != nil {
		return nil, err
	}

	keeper := findFingerprintTwin(db, kase, fp)
	if keeper == nil {
		return kase, nil
	}

	if err := mergeCases(db, keeper, kase, fp); err != nil {
		return nil, err
	}
	return keeper, nil
}

// findFingerprintTwin procura outro caso não-deletado do tenant com o mesmo
// fingerprint no metadata.
func findFingerprintTwin(db *gorm.DB, kase *models.Case, fp string) *models.Case {
	var candidates []models.Case
	if err := db.Where("tenant_id = ? AND id <> ?", kase.TenantID, kase.ID).
		Find(&candidates).Error; err != nil {
		return nil
	}
	for i := range candidates {
		if candidates[i].MetaGet(models.META_FINGERPRINT) == fp {
			return &candidates[i]
		}
	}
	return nil
}

// mergeCases funde loser (caso novo) em keeper (caso existente).
// Cada passo é idempotente: re-execução a partir de estado parcial converge.
func mergeCases(db *gorm.DB, keeper, loser *models.Case, fp string) error {
	if err := db.Model(&models.ChannelMessage{}).Where("case_id = ?", loser.ID).
		Update("case_id", keeper.ID).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Attachment{}).Where("case_id = ?", loser.ID).
		Update("case_id", keeper.ID).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Pendency{}).Where("case_id = ?", loser.ID).
		Update("case_id", keeper.ID).Error; err != nil {
		return err
	}

	// Itens: os do keeper têm precedência; os do loser só migram se o keeper
	// não tiver nenhum (nunca união, nunca duplicação).
	var keeperItems int
	db.Model(&models.CaseItem{}).Where("case_id = ?", keeper.ID).Count(&keeperItems)
	if keeperItems == 0 {
		if err := db.Model(&models.CaseItem{}).Where("case_id = ?", loser.ID).
			Update("case_id", keeper.ID).Error; err != nil {
			return err
		}
	} else {
		if err := db.Where("case_id = ?", loser.ID).Delete(&models.CaseItem{}).Error; err != nil {
			return err
		}
	}

	if err := db.Delete(&models.Case{}, "id = ?", loser.ID).Error; err != nil {
		return err
	}

	dbpkg.Audit(db, keeper.TenantID, &keeper.ID, "case_merged",
		fmt.Sprintf("caso %d fundido no caso %d (mesmo fingerprint)", loser.ID, keeper.ID),
		map[string]any{"kept": keeper.ID, "merged": loser.ID, "fingerprint": fp})
	return nil
}
