// Package currencyutils provides defensive parsing of locale-formatted
// currency strings as they appear in bank and wallet statements.
package currencyutils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CleanAmount strips every character that is not a digit or a decimal point
// from an amount string, removing thousands separators and currency symbols.
// "₹1,234.50" becomes "1234.50", "Rs. 1,234" becomes "1234".
func CleanAmount(amountStr string) string {
	var b strings.Builder
	for _, r := range amountStr {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseAmount parses a locale-formatted amount string into a decimal.
// A value that is empty after cleaning resolves to zero; parse failures
// also resolve to zero with ok=false so a single malformed amount never
// aborts a batch.
func ParseAmount(amountStr string) (decimal.Decimal, bool) {
	cleaned := CleanAmount(amountStr)
	if cleaned == "" {
		return decimal.Zero, true
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// IsPlaceholder reports whether the field value stands in for "no amount":
// empty, a bare dash, or a value that cleans to nothing or parses to zero.
func IsPlaceholder(amountStr string) bool {
	trimmed := strings.TrimSpace(amountStr)
	if trimmed == "" || trimmed == "-" {
		return true
	}
	cleaned := CleanAmount(trimmed)
	if cleaned == "" {
		return true
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return true
	}
	return amount.IsZero()
}
