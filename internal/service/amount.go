package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single transaction may carry.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

const maxFractionDigits = 2

// FilterAmountInput applies the edit-time amount policy to raw keyboard input.
// Everything except digits and '.' is stripped. The edit is rejected, returning
// prev unchanged, when the result would hold two decimal points, more than two
// fractional digits, or a value above MaxAmount. Partial input such as "12." is kept.
func FilterAmountInput(prev, raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if strings.Count(cleaned, ".") > 1 {
		return prev
	}
	if i := strings.IndexByte(cleaned, '.'); i >= 0 && len(cleaned)-i-1 > maxFractionDigits {
		return prev
	}
	if v, err := decimal.NewFromString(cleaned); err == nil && v.GreaterThan(MaxAmount) {
		return prev
	}
	return cleaned
}

// ParseAmount converts a draft amount into a decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// FormatAmount renders a stored amount the way the draft holds it: no exponent,
// no trailing zeros, at most two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(maxFractionDigits).String()
}
