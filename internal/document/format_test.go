package document

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in     string
		places int
		want   string
	}{
		{"0", 2, "0,00"},
		{"1234.5", 2, "1.234,50"},
		{"1234567.891", 2, "1.234.567,89"},
		{"999.995", 2, "1.000,00"},
		{"12.5", 0, "13"},
		{"12.25", 1, "12,3"},
		{"-1234.5", 2, "-1.234,50"},
		{"-0.001", 2, "0,00"},
		{"100", 2, "100,00"},
	}

	for _, tt := range tests {
		if got := FormatAmount(dec(tt.in), tt.places); got != tt.want {
			t.Errorf("FormatAmount(%s, %d) = %q, want %q", tt.in, tt.places, got, tt.want)
		}
	}
}

func TestFormatMoneyQtyPercent(t *testing.T) {
	if got := FormatMoney("€", dec("550.01")); got != "€ 550,01" {
		t.Errorf("FormatMoney = %q", got)
	}
	if got := FormatMoney("", dec("5")); got != "5,00" {
		t.Errorf("FormatMoney without symbol = %q", got)
	}
	if got := FormatQty(dec("5")); got != "5" {
		t.Errorf("FormatQty(5) = %q", got)
	}
	if got := FormatQty(dec("2.5")); got != "2,50" {
		t.Errorf("FormatQty(2.5) = %q", got)
	}
	if got := FormatPercent(dec("0.21")); got != "21%" {
		t.Errorf("FormatPercent(0.21) = %q", got)
	}
	if got := FormatPercent(dec("0.055")); got != "5,5%" {
		t.Errorf("FormatPercent(0.055) = %q", got)
	}
}

func TestFormatMoneySigns(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234567.891", "€ 1.234.567,89"},
		{"-95.45", "€ -95,45"},
		{"0", "€ 0,00"},
		{"-0.004", "€ 0,00"},
	}

	for _, tt := range tests {
		if got := FormatMoney("€", dec(tt.in)); got != tt.want {
			t.Errorf("FormatMoney(€, %s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
