package calc

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var locale = language.Italian

// FormatEUR renders an amount as Italian currency text, e.g. "41.664,00 €".
func FormatEUR(v float64) string {
	return message.NewPrinter(locale).Sprintf("%.2f", clean(v)) + " €"
}

// FormatPct renders a percentage with two decimals, e.g. "20,00%".
func FormatPct(v float64) string {
	return message.NewPrinter(locale).Sprintf("%.2f", clean(v)) + "%"
}

// FormatPctRounded renders a percentage rounded to a whole number, e.g. "68%".
func FormatPctRounded(v float64) string {
	return message.NewPrinter(locale).Sprintf("%d", int64(roundHalfUp(clean(v)))) + "%"
}

// FormatPerStay renders a per-booking price, e.g. "€ 3,50".
func FormatPerStay(v float64) string {
	return "€ " + strings.TrimSuffix(FormatEUR(v), " €")
}

// clean maps non-finite values to 0 and drops the sign of values that would
// print as a negative zero.
func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) < 0.005 {
		return 0
	}
	return v
}
