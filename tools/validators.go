package tools

// ValidateCPF confere os dígitos verificadores de um CPF (11 dígitos, sem
// máscara). Sequências repetidas ("11111111111") são inválidas.
func ValidateCPF(cpf string) bool {
	digits := OnlyDigits(cpf)
	if len(digits) != 11 || allSameDigit(digits) {
		return false
	}

	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(digits[i]-'0') * (n + 1 - i)
		}
		check := (sum * 10) % 11 % 10
		if check != int(digits[n]-'0') {
			return false
		}
	}
	return true
}

// ValidateCNPJ confere os dígitos verificadores de um CNPJ (14 dígitos, sem
// máscara).
func ValidateCNPJ(cnpj string) bool {
	digits := OnlyDigits(cnpj)
	if len(digits) != 14 || allSameDigit(digits) {
		return false
	}

	weights := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	for _, n := range []int{12, 13} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(digits[i]-'0') * weights[len(weights)-n+i]
		}
		check := sum % 11
		if check < 2 {
			check = 0
		} else {
			check = 11 - check
		}
		if check != int(digits[n]-'0') {
			return false
		}
	}
	return true
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
