// Package report turns a pipeline run into display rows, a markdown table
// and rendered HTML.
package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"valuation_dashboard/pkg/core/valuation"
)

// NotAvailable is printed for values that are not computable.
const NotAvailable = "n/a"

var hundred = decimal.NewFromInt(100)

// Money formats a currency amount with two decimals and thousands separators.
func Money(v float64) string {
	return group(decimal.NewFromFloat(v).StringFixed(2))
}

// Percent formats a decimal ratio as a percentage, 0.0773 -> "7.73%".
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

// Ratio formats a plain multiple such as a beta.
func Ratio(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Days formats a day count with one decimal.
func Days(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// MoneyEstimate, PercentEstimate and DaysEstimate print NotAvailable for
// not-computable values.
func MoneyEstimate(e valuation.Estimate) string {
	if !e.Computable {
		return NotAvailable
	}
	return Money(e.Value)
}

func PercentEstimate(e valuation.Estimate) string {
	if !e.Computable {
		return NotAvailable
	}
	return Percent(e.Value)
}

func DaysEstimate(e valuation.Estimate) string {
	if !e.Computable {
		return NotAvailable
	}
	return Days(e.Value)
}

// group inserts thousands separators into a fixed-point string.
func group(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}
