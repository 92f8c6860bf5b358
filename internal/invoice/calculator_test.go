package invoice

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"invoicer/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeNeonSingleLine(t *testing.T) {
	tests := []struct {
		mode      RoundingMode
		wantVAT   string
		wantTotal string
	}{
		{RoundHalfUp, "90.21", "519.76"},
		{RoundHalfEven, "90.21", "519.76"},
		{RoundDown, "90.20", "519.75"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			inv, err := NewCalculator(tt.mode).Compute(models.TemplateNeon, CalculationInput{
				Items: []CalculationItem{
					{Key: "1", Description: "Development", Qty: d("1"), Price: d("429.55"), VATPct: d("0.21")},
				},
			})
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if len(inv.Items) != 1 {
				t.Fatalf("got %d items, want 1", len(inv.Items))
			}
			line := inv.Items[0]
			if !line.BaseAmt.Equal(d("429.55")) {
				t.Errorf("base = %s, want 429.55", line.BaseAmt)
			}
			if !line.VATAmt.Equal(d(tt.wantVAT)) {
				t.Errorf("vat = %s, want %s", line.VATAmt, tt.wantVAT)
			}
			if !line.TotalAmt.Equal(d(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", line.TotalAmt, tt.wantTotal)
			}
		})
	}
}

func TestComputeNeonTwoLines(t *testing.T) {
	items := []CalculationItem{
		{Key: "1", Description: "Development", Qty: d("1"), Price: d("429.55"), VATPct: d("0.21")},
		{Key: "2", Description: "Hosting", Qty: d("1"), Price: d("25"), VATPct: d("0.21")},
	}

	tests := []struct {
		mode      RoundingMode
		wantVAT   string
		wantTotal string
	}{
		{RoundHalfUp, "95.46", "550.01"},
		{RoundDown, "95.45", "550.00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			inv, err := NewCalculator(tt.mode).Compute(models.TemplateNeon, CalculationInput{Items: items})
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if !inv.Totals.BaseAmt.Equal(d("454.55")) {
				t.Errorf("base = %s, want 454.55", inv.Totals.BaseAmt)
			}
			if !inv.Totals.VATAmt.Equal(d(tt.wantVAT)) {
				t.Errorf("vat = %s, want %s", inv.Totals.VATAmt, tt.wantVAT)
			}
			if !inv.Totals.TotalAmt.Equal(d(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", inv.Totals.TotalAmt, tt.wantTotal)
			}
			if inv.Items[0].Key != "1" || inv.Items[1].Key != "2" {
				t.Errorf("item order not kept: %s, %s", inv.Items[0].Key, inv.Items[1].Key)
			}
		})
	}
}

func TestComputeArgenta(t *testing.T) {
	inv, err := NewCalculator(RoundHalfUp).Compute(models.TemplateArgenta, CalculationInput{
		ConsultancyDays: d("5"),
		DayRate:         d("500"),
		Description:     "Consultancy",
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(inv.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(inv.Items))
	}
	line := inv.Items[0]
	if line.Key != "1" || line.Description != "Consultancy" {
		t.Errorf("unexpected line %+v", line)
	}
	if !line.VATPct.Equal(ArgentaVATPct) {
		t.Errorf("vat pct = %s, want 0.21", line.VATPct)
	}
	if !inv.Totals.BaseAmt.Equal(d("2500")) {
		t.Errorf("base = %s, want 2500", inv.Totals.BaseAmt)
	}
	if !inv.Totals.VATAmt.Equal(d("525")) {
		t.Errorf("vat = %s, want 525.00", inv.Totals.VATAmt)
	}
	if !inv.Totals.TotalAmt.Equal(d("3025")) {
		t.Errorf("total = %s, want 3025.00", inv.Totals.TotalAmt)
	}
}

func TestComputeUnknownTemplate(t *testing.T) {
	_, err := NewCalculator(RoundHalfUp).Compute(models.ParseTemplate("foo"), CalculationInput{
		Items: []CalculationItem{{Key: "1", Qty: d("1"), Price: d("1"), VATPct: d("0.21")}},
	})
	if !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("err = %v, want ErrInvalidTemplate", err)
	}
}

func TestComputeInvariants(t *testing.T) {
	items := []CalculationItem{
		{Key: "1", Qty: d("3"), Price: d("19.99"), VATPct: d("0.21")},
		{Key: "2", Qty: d("0.5"), Price: d("80.10"), VATPct: d("0.06")},
		{Key: "3", Qty: d("7"), Price: d("0.333"), VATPct: d("0.12")},
		{Key: "4", Qty: d("2"), Price: d("10"), VATPct: d("0")},
	}

	for _, mode := range []RoundingMode{RoundHalfUp, RoundHalfEven, RoundDown} {
		inv, err := NewCalculator(mode).Compute(models.TemplateNeon, CalculationInput{Items: items})
		if err != nil {
			t.Fatalf("%s: Compute: %v", mode, err)
		}

		sum := Sum(inv.Items)
		if !sum.TotalAmt.Equal(inv.Totals.TotalAmt) {
			t.Errorf("%s: totals %s differ from line sum %s", mode, inv.Totals.TotalAmt, sum.TotalAmt)
		}
		if !inv.Totals.BaseAmt.Add(inv.Totals.VATAmt).Equal(inv.Totals.TotalAmt) {
			t.Errorf("%s: base + vat != total", mode)
		}
		for _, line := range inv.Items {
			if !line.BaseAmt.Add(line.VATAmt).Equal(line.TotalAmt) {
				t.Errorf("%s: line %s: base + vat != total", mode, line.Key)
			}
			if line.VATAmt.Exponent() < -2 {
				t.Errorf("%s: line %s: vat %s not rounded to cents", mode, line.Key, line.VATAmt)
			}
			if line.VATAmt.IsNegative() {
				t.Errorf("%s: line %s: negative vat", mode, line.Key)
			}
		}
	}
}

func TestParseRoundingMode(t *testing.T) {
	if m, err := ParseRoundingMode(""); err != nil || m != RoundHalfUp {
		t.Errorf("empty mode = %q, %v; want half-up", m, err)
	}
	if _, err := ParseRoundingMode("ceiling"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
