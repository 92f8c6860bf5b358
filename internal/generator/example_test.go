package generator_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"invoicer/internal/document"
	"invoicer/internal/generator"
	"invoicer/internal/invoice"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

func ExampleGenerator_Generate() {
	dir, _ := os.MkdirTemp("", "invoicer-example")
	defer os.RemoveAll(dir)

	db := store.New(filepath.Join(dir, "db.json"), &models.ReferenceData{
		Companies: map[string]*models.Company{
			"self": {Name: "Self BV", LastSequences: map[string]int{"invoice": 41}},
			"acme": {Name: "Acme NV"},
		},
		Currencies: map[string]*models.Currency{"EUR": {Symbol: "€"}},
		Defaults:   models.Defaults{CreditorID: "self", CurrencyID: "EUR"},
	})

	req, err := invoice.ParseRequest([]byte(`{
		"debtor_id": "acme",
		"delivery_date": "2024-06-30",
		"invoice_date": "2024-07-01",
		"items": {"1": {"description": "Support", "qty": 3, "price": 80, "vat_pct": 0.21}}
	}`), invoice.FormatJSON, invoice.Overrides{})
	if err != nil {
		fmt.Println(err)
		return
	}

	gen := generator.New(generator.Options{
		Store:      db,
		Calculator: invoice.NewCalculator(invoice.RoundHalfUp),
		Exporter:   document.NewExporter(filepath.Join(dir, "out"), nil),
		Now:        func() time.Time { return time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC) },
	})

	run, err := gen.Generate(context.Background(), req)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := run.SkipConfirmation(); err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(run.State, filepath.Base(run.Output.DocxPath))
	fmt.Println(run.Invoice.Totals.TotalAmt.StringFixed(2))
	// Output:
	// test_run_skipped I_2024-42.docx
	// 290.40
}
