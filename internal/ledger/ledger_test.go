package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"invoicer/pkg/models"
)

func entry(docType models.DocumentType, number string) models.RegisterEntry {
	return models.RegisterEntry{
		DocumentType: docType,
		Number:       number,
		IssueDate:    time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2024, time.April, 9, 0, 0, 0, 0, time.UTC),
		Debtor:       "Acme NV",
		BaseAmt:      decimal.RequireFromString("454.55"),
		VATAmt:       decimal.RequireFromString("95.46"),
		TotalAmt:     decimal.RequireFromString("550.01"),
		Currency:     "EUR",
		FileName:     "I_" + number + ".pdf",
		RecordedAt:   time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC),
	}
}

func readRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestAppendCreatesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "register.xlsx")
	wb := NewWorkbook(path, "")

	if err := wb.Append(context.Background(), []models.RegisterEntry{entry(models.DocumentInvoice, "2024-8")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readRows(t, path, DefaultSheet)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][1] != "Nummer" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "INVOICE" || rows[1][1] != "2024-8" || rows[1][4] != "Acme NV" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestAppendSkipsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "register.xlsx")
	wb := NewWorkbook(path, "Docs")
	ctx := context.Background()

	if err := wb.Append(ctx, []models.RegisterEntry{entry(models.DocumentInvoice, "2024-8")}); err != nil {
		t.Fatal(err)
	}
	err := wb.Append(ctx, []models.RegisterEntry{
		entry(models.DocumentInvoice, "2024-8"),
		entry(models.DocumentOffer, "2024-8"),
		entry(models.DocumentInvoice, "2024-9"),
	})
	if err != nil {
		t.Fatal(err)
	}

	rows := readRows(t, path, "Docs")
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if rows[2][0] != "OFFER" || rows[3][1] != "2024-9" {
		t.Errorf("rows = %v", rows)
	}
}
