// Package format renders journal values for people: money, percentages, prices
// and month labels. Rounding goes through decimal so 1.005 renders as 1.01.
package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxjournal/internal/calc"
)

// Placeholder is rendered for a missing value.
const Placeholder = "-"

// fixed rounds v half away from zero to places and returns the sign of the
// rounded value together with the grouped absolute digits.
func fixed(v float64, places int32) (sign int, digits string) {
	d := decimal.NewFromFloat(v).Round(places)
	return d.Sign(), group(d.Abs().StringFixed(places))
}

// group inserts thousands separators into the integer part of s.
func group(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
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
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func signed(sign int, body string, explicitPlus bool) string {
	switch {
	case sign < 0:
		return "-" + body
	case sign > 0 && explicitPlus:
		return "+" + body
	}
	return body
}

// Number renders v with thousands separators and the given decimals.
func Number(v *float64, decimals int) string {
	if v == nil {
		return Placeholder
	}
	sign, digits := fixed(*v, int32(decimals))
	return signed(sign, digits, false)
}

// Percent renders v as a signed percentage: "+1.25%", "-0.40%", "0.00%".
func Percent(v float64) string {
	sign, digits := fixed(v, 2)
	return signed(sign, digits+"%", true)
}

// USD renders a signed dollar amount as used for P&L: "+$1,234.56", "-$12.00".
func USD(v float64) string {
	sign, digits := fixed(v, 2)
	return signed(sign, "$"+digits, true)
}

// Currency renders a dollar amount without a plus sign: "$1,234.56", "-$12.00".
func Currency(v float64) string {
	sign, digits := fixed(v, 2)
	return signed(sign, "$"+digits, false)
}

// Volume renders a lot size with two decimals.
func Volume(v float64) string {
	return Number(&v, 2)
}

// PriceDecimals is the number of decimals quotes of symbol are shown with.
func PriceDecimals(symbol string) int {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "JPY"):
		return 3
	case strings.Contains(s, "XAU"), strings.Contains(s, "XAG"):
		return 2
	}
	return 5
}

// Price renders a quote of symbol, or Placeholder when v is nil.
func Price(symbol string, v *float64) string {
	return Number(v, PriceDecimals(symbol))
}

func parseMonth(key string) (time.Time, bool) {
	if !calc.ValidMonthKey(key) {
		return time.Time{}, false
	}
	t, _ := time.Parse("2006-01", key)
	return t, true
}

// MonthLabel renders "2026-03" as "March 2026". Invalid keys are returned as is.
func MonthLabel(key string) string {
	if t, ok := parseMonth(key); ok {
		return t.Format("January 2006")
	}
	return key
}

// MonthShort renders "2026-03" as "Mar 2026". Invalid keys are returned as is.
func MonthShort(key string) string {
	if t, ok := parseMonth(key); ok {
		return t.Format("Jan 2006")
	}
	return key
}

// DateTime renders t as "02 Jan 2006 15:04" in t's location.
func DateTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}

// Date renders a "2006-01-02" date key as "02 Jan". Invalid keys are returned as is.
func Date(key string) string {
	if !calc.ValidDateKey(key) {
		return key
	}
	t, _ := time.Parse("2006-01-02", key)
	return t.Format("02 Jan")
}
