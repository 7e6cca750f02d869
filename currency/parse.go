package currency

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AllIn is the wager expression meaning "my entire balance"
const AllIn = "all"

// Precision is the number of minor-unit digits kept for every amount
const Precision = 2

var (
	// ErrUnparseable is returned when an expression is not a monetary amount
	ErrUnparseable = errors.New("unparseable amount")

	numberPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

	currencySymbols = []string{"$", "€", "£", "¥"}

	suffixMultipliers = map[byte]decimal.Decimal{
		'k': decimal.NewFromInt(1_000),
		'm': decimal.NewFromInt(1_000_000),
		'b': decimal.NewFromInt(1_000_000_000),
	}
)

// Parse converts a monetary expression such as "1,250.50", "$20", "-$5" or "2.5k"
// into an exact amount rounded to Precision decimal places.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, ErrUnparseable
	}

	negative := false
	// Sign may appear on either side of the currency symbol ("-$5", "$-5")
	for i := 0; i < 2; i++ {
		switch {
		case strings.HasPrefix(s, "-"):
			negative = !negative
			s = s[1:]
		case strings.HasPrefix(s, "+"):
			s = s[1:]
		}
		s = trimSymbol(s)
	}

	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrUnparseable
	}

	multiplier := decimal.NewFromInt(1)
	if m, ok := suffixMultipliers[s[len(s)-1]]; ok {
		multiplier = m
		s = s[:len(s)-1]
	}

	if !numberPattern.MatchString(s) {
		return decimal.Zero, ErrUnparseable
	}

	amount, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, ErrUnparseable
	}
	amount = amount.Mul(multiplier).Round(Precision)
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// IsAllIn reports whether the expression is the all-in marker
func IsAllIn(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), AllIn)
}

func trimSymbol(s string) string {
	for _, sym := range currencySymbols {
		if strings.HasPrefix(s, sym) {
			return strings.TrimSpace(s[len(sym):])
		}
	}
	return s
}
