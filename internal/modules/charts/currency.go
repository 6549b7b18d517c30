package charts

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount in US dollars with thousands grouping,
// e.g. 1234.5 -> "$1,234.50", -50 -> "-$50.00".
func FormatCurrency(amount float64) string {
	return FormatDecimal(decimal.NewFromFloat(amount))
}

// FormatDecimal is FormatCurrency for decimal amounts
func FormatDecimal(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	whole, frac, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
