package estimate

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount rounded half away from zero to two places
// with thousands separators, e.g. "Rs. 11,500.00".
func FormatMoney(currency string, amount float64) string {
	if !finite(amount) {
		return withCurrency(currency, strconv.FormatFloat(amount, 'f', -1, 64))
	}
	s := decimal.NewFromFloat(amount).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return withCurrency(currency, sign+b.String()+"."+frac)
}

func withCurrency(currency, amount string) string {
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FormatUnits renders a unit quantity with at most two decimals.
func FormatUnits(units float64) string {
	if !finite(units) {
		return strconv.FormatFloat(units, 'f', -1, 64)
	}
	return decimal.NewFromFloat(units).Round(2).String()
}
