package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol prefixes every formatted amount
const Symbol = "$"

// Format renders an amount as "$1,234.56" ("-$5.00" for negatives)
func Format(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(Precision)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + Symbol + groupThousands(whole) + "." + frac
}

// FormatSigned renders an amount with an explicit sign, e.g. "+$1,000.00"
func FormatSigned(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return Format(amount)
	}
	return "+" + Format(amount)
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	var result strings.Builder
	for i, digit := range digits {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}
	return result.String()
}
