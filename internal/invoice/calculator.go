package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoicer/pkg/models"
)

// RoundingMode decides how per-line VAT is rounded to cents.
type RoundingMode string

const (
	// RoundHalfUp rounds halves away from zero (0.005 -> 0.01).
	RoundHalfUp RoundingMode = "half-up"
	// RoundHalfEven rounds halves to the even cent (banker's rounding).
	RoundHalfEven RoundingMode = "half-even"
	// RoundDown truncates towards zero.
	RoundDown RoundingMode = "down"
)

// ParseRoundingMode maps a configuration value to a RoundingMode.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch m := RoundingMode(s); m {
	case RoundHalfUp, RoundHalfEven, RoundDown:
		return m, nil
	case "":
		return RoundHalfUp, nil
	}
	return "", fmt.Errorf("unknown rounding mode %q", s)
}

// ArgentaVATPct is the fixed VAT rate of the day-rate template.
var ArgentaVATPct = decimal.RequireFromString("0.21")

// CalculationItem is one validated request line.
type CalculationItem struct {
	Key         string
	Description string
	Qty         decimal.Decimal
	Price       decimal.Decimal
	VATPct      decimal.Decimal
}

// CalculationInput carries what either template needs. Defaults from the
// reference store are resolved by the caller.
type CalculationInput struct {
	Items []CalculationItem

	ConsultancyDays decimal.Decimal
	DayRate         decimal.Decimal
	Description     string
}

// Calculator computes line and invoice amounts. It has no side effects.
type Calculator struct {
	rounding RoundingMode
}

// NewCalculator returns a calculator using the given rounding mode.
func NewCalculator(mode RoundingMode) *Calculator {
	if mode == "" {
		mode = RoundHalfUp
	}
	return &Calculator{rounding: mode}
}

// Rounding returns the calculator's rounding mode.
func (c *Calculator) Rounding() RoundingMode {
	return c.rounding
}

// Compute returns the computed invoice for the template.
func (c *Calculator) Compute(tpl models.Template, in CalculationInput) (*models.ComputedInvoice, error) {
	var items []models.LineItem

	switch tpl {
	case models.TemplateNeon:
		items = make([]models.LineItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, c.line(it.Key, it.Description, it.Qty, it.Price, it.VATPct))
		}
	case models.TemplateArgenta:
		items = []models.LineItem{
			c.line("1", in.Description, in.ConsultancyDays, in.DayRate, ArgentaVATPct),
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, tpl)
	}

	return &models.ComputedInvoice{
		Template: tpl,
		Items:    items,
		Totals:   Sum(items),
	}, nil
}

func (c *Calculator) line(key, description string, qty, unit, vatPct decimal.Decimal) models.LineItem {
	base := qty.Mul(unit)
	vat := c.round(base.Mul(vatPct))
	return models.LineItem{
		Key:         key,
		Description: description,
		Qty:         qty,
		UnitAmt:     unit,
		BaseAmt:     base,
		VATPct:      vatPct,
		VATAmt:      vat,
		TotalAmt:    base.Add(vat),
	}
}

func (c *Calculator) round(d decimal.Decimal) decimal.Decimal {
	switch c.rounding {
	case RoundHalfEven:
		return d.RoundBank(2)
	case RoundDown:
		return d.Truncate(2)
	default:
		return d.Round(2)
	}
}

// Sum adds up already rounded line amounts.
func Sum(items []models.LineItem) models.Totals {
	totals := models.Totals{
		BaseAmt:  decimal.Zero,
		VATAmt:   decimal.Zero,
		TotalAmt: decimal.Zero,
	}
	for _, it := range items {
		totals.BaseAmt = totals.BaseAmt.Add(it.BaseAmt)
		totals.VATAmt = totals.VATAmt.Add(it.VATAmt)
		totals.TotalAmt = totals.TotalAmt.Add(it.TotalAmt)
	}
	return totals
}
