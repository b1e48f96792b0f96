package tools

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var moneyCleanRe = regexp.MustCompile(`[^\d.,]`)

// ParseMoneyCents converte um valor monetário textual em centavos inteiros,
// respeitando separadores BR ("1.234,56") e internacionais ("1,234.56").
//
// Regra: se os dois separadores aparecem, o último é o decimal; um separador
// sozinho é decimal quando seguido de exatamente 2 dígitos no fim.
func ParseMoneyCents(raw string) (int64, bool) {
	s := moneyCleanRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	decSep := byte(0)
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			decSep = ','
		} else {
			decSep = '.'
		}
	case lastComma >= 0:
		if len(s)-lastComma == 3 {
			decSep = ','
		}
	case lastDot >= 0:
		if len(s)-lastDot == 3 {
			decSep = '.'
		}
	}

	intPart := s
	fracPart := "00"
	if decSep != 0 {
		idx := strings.LastIndexByte(s, decSep)
		intPart = s[:idx]
		fracPart = s[idx+1:]
		if len(fracPart) != 2 {
			return 0, false
		}
	}

	// remove separadores de milhar restantes
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if intPart == "" {
		intPart = "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	cents, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return units*100 + cents, true
}

var dateLayoutsBR = []string{
	"02/01/2006",
	"02/01/06",
	"02-01-2006",
	"02.01.2006",
	"2/1/2006",
	"2006-01-02", // já canônico
}

// ParseDateBR aceita as variantes DD/MM/YYYY comuns em documento brasileiro
// e devolve a forma canônica YYYY-MM-DD.
func ParseDateBR(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayoutsBR {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var spaceRe = regexp.MustCompile(`\s+`)

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// NormalizeText rebaixa pra minúsculas, remove acento PT-BR e colapsa espaço.
// Usado pra chavear identidade de cliente e linhas de item no fingerprint.
func NormalizeText(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = accentReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return s
}

var digitsRe = regexp.MustCompile(`\D`)

// OnlyDigits remove tudo que não é dígito (CPF/CNPJ, telefones em texto livre).
func OnlyDigits(raw string) string {
	return digitsRe.ReplaceAllString(raw, "")
}
