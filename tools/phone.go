package tools

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizePhone normaliza um telefone para formato internacional só-dígitos
// (sem '+'), aceito pelo WhatsApp Cloud API.
//
// Heurística atual (Brasil):
// - remove tudo que não é dígito
// - se vier com 10/11 dígitos, assume BR e prefixa 55
// - se já vier com DDI (>= 12 dígitos), mantém
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty phone")
	}

	// mantém apenas dígitos
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	phone = strings.TrimLeft(phone, "0")

	// BR comum (DDD+numero): 10 ou 11 dígitos -> prefixa 55
	if len(phone) == 10 || len(phone) == 11 {
		phone = "55" + phone
	}

	if len(phone) < 12 {
		return "", fmt.Errorf("invalid phone length: %d", len(phone))
	}
	return phone, nil
}

// PhoneVariants devolve o conjunto de formas plausíveis do mesmo número:
// com/sem DDI 55 e, para números BR, com/sem o nono dígito do celular.
// Registros históricos entraram com formato inconsistente; o lookup de
// cliente/caso compara contra todas as variantes.
func PhoneVariants(raw string) []string {
	canonical, err := NormalizePhone(raw)
	if err != nil {
		return nil
	}

	set := map[string]bool{canonical: true}

	if strings.HasPrefix(canonical, "55") {
		national := canonical[2:] // DDD + número
		set[national] = true

		// celular BR: DDD(2) + 9 + 8 dígitos. Gera a variante sem o "9" extra
		// (formato antigo) ou com ele (formato novo).
		if len(national) == 11 && national[2] == '9' {
			old := national[:2] + national[3:]
			set[old] = true
			set["55"+old] = true
		} else if len(national) == 10 {
			novo := national[:2] + "9" + national[2:]
			set[novo] = true
			set["55"+novo] = true
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// SamePhone informa se dois números representam o mesmo contraparte,
// tolerando DDI ausente e o nono dígito.
func SamePhone(a, b string) bool {
	va := PhoneVariants(a)
	vb := PhoneVariants(b)
	if len(va) == 0 || len(vb) == 0 {
		return false
	}
	for _, x := range va {
		for _, y := range vb {
			if x == y {
				return true
			}
		}
	}
	return false
}
