package ocr

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

const sameLineText = `Factuur
Factuur nr. 2024-8
Factuurdatum 10-03-2024
Leveringsdatum 05-03-2024
Vervaldag 09-04-2024
Acme NV
Details
Product beschrijving Aantal Eenheidsprijs Bedrag excl. BTW BTW (21%) Bedrag incl. BTW
Development 1 € 429,55 € 429,55 € 90,21 € 519,76
Hosting 1 € 25,00 € 25,00 € 5,25 € 30,25
Subtotaal € 454,55
BTW € 95,46
Totaal € 550,01
Gelieve het factuurbedrag van € 550,01 te betalen voor 09-04-2024.`

const stackedText = `Offerte
Offertedatum
10-03-2024
Offerte nr.
2024-3
Subtotaal
BTW
Totaal
€ 2.500,00
€ 525,00
€ 3.025,00
btw BE0123.456.789`

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func checkAmount(t *testing.T, name string, got *decimal.Decimal, want string) {
	t.Helper()
	if got == nil {
		t.Errorf("%s not found, want %s", name, want)
		return
	}
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}

func TestParseAmounts(t *testing.T) {
	tests := []struct {
		name            string
		text            string
		number          string
		net, vat, total string
	}{
		{"amounts on label lines", sameLineText, "2024-8", "454.55", "95.46", "550.01"},
		{"amounts after labels", stackedText, "2024-3", "2500", "525", "3025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmounts(tt.text)
			if got.Number != tt.number {
				t.Errorf("number = %q, want %q", got.Number, tt.number)
			}
			if got.Currency != "EUR" {
				t.Errorf("currency = %q", got.Currency)
			}
			checkAmount(t, "net", got.NetAmt, tt.net)
			checkAmount(t, "vat", got.VATAmt, tt.vat)
			checkAmount(t, "total", got.TotalAmt, tt.total)
		})
	}
}

func TestParseAmountsWithoutTotals(t *testing.T) {
	got := ParseAmounts("Some letter\nwithout any amounts")
	if got.NetAmt != nil || got.VATAmt != nil || got.TotalAmt != nil || got.Number != "" {
		t.Errorf("got %+v, want nothing", got)
	}
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) ProcessPDF(_ context.Context, r io.Reader) (*Result, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Text: f.text, PageCount: 1, Confidence: 0.98}, nil
}

func TestAmountReaderReconciles(t *testing.T) {
	reader := NewAmountReader(fakeOCR{text: sameLineText})
	extracted, err := reader.Extract(context.Background(), strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if extracted.Confidence["text"] != 0.98 {
		t.Errorf("confidence = %v", extracted.Confidence)
	}

	totals := models.Totals{BaseAmt: dec("454.55"), VATAmt: dec("95.46"), TotalAmt: dec("550.01")}
	res := invoice.NewAmountValidation(reader).Reconcile("2024-8", totals, extracted)
	if res.HasDiscrepancy || len(res.Warnings) != 0 {
		t.Errorf("unexpected discrepancy: %v", res.Warnings)
	}
}

func TestAmountReaderPropagatesErrors(t *testing.T) {
	reader := NewAmountReader(fakeOCR{err: ErrEmptyDocument})
	_, err := reader.Extract(context.Background(), strings.NewReader("%PDF"))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestCheckPDF(t *testing.T) {
	if err := checkPDF([]byte("%PDF-1.7")); err != nil {
		t.Errorf("valid header rejected: %v", err)
	}
	if err := checkPDF([]byte("PK\x03\x04")); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("err = %v, want ErrInvalidPDF", err)
	}
}
