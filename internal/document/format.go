package document

import (
	"strings"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

// FormatAmount renders d with the given number of decimals, "." as the
// thousands separator and "," as the decimal separator: 1234.5 -> "1.234,50".
// Halves round away from zero.
func FormatAmount(d decimal.Decimal, places int) string {
	if places < 0 {
		places = 0
	}
	if d.Round(int32(places)).IsZero() {
		d = decimal.Zero
	}
	return accounting.FormatNumberDecimal(d, places, ".", ",")
}

// FormatMoney prefixes a two-decimal amount with the currency symbol.
func FormatMoney(symbol string, d decimal.Decimal) string {
	if symbol == "" {
		return FormatAmount(d, 2)
	}
	if d.Round(2).IsZero() {
		d = decimal.Zero
	}
	ac := accounting.Accounting{
		Symbol:         symbol,
		Precision:      2,
		Thousand:       ".",
		Decimal:        ",",
		Format:         "%s %v",
		FormatNegative: "%s -%v",
		FormatZero:     "%s %v",
	}
	return ac.FormatMoneyDecimal(d)
}

// FormatQty shows whole quantities without decimals and anything else
// with two.
func FormatQty(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return FormatAmount(d, 0)
	}
	return FormatAmount(d, 2)
}

// FormatPercent renders a fraction as a percentage: 0.21 -> "21%",
// 0.055 -> "5,5%".
func FormatPercent(d decimal.Decimal) string {
	return strings.Replace(d.Shift(2).String(), ".", ",", 1) + "%"
}
