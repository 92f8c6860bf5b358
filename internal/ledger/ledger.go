// Package ledger keeps the document register in a local Excel workbook.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// DefaultSheet is used when no sheet name is given.
const DefaultSheet = "Register"

var header = []any{
	"Type", "Nummer", "Datum", "Vervaldag", "Klant", "Excl. BTW",
	"BTW", "Incl. BTW", "Munt", "Bestand", "Drive id", "Geregistreerd",
}

// Workbook appends register entries to an .xlsx file, creating it on
// first use.
type Workbook struct {
	path  string
	sheet string
	log   zerolog.Logger
}

// NewWorkbook returns a register stored at path.
func NewWorkbook(path, sheet string) *Workbook {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Workbook{path: path, sheet: sheet, log: logger.WithComponent("ledger")}
}

// Append adds entries not yet in the workbook and saves it.
func (w *Workbook) Append(_ context.Context, entries []models.RegisterEntry) error {
	const op = "ledger.Append"

	f, err := w.open()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet)
	if err != nil {
		return fmt.Errorf("%s: failed to read %s: %w", op, w.sheet, err)
	}
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if len(r) >= 2 {
			seen[r[0]+"/"+r[1]] = true
		}
	}

	next := len(rows) + 1
	added := 0
	for _, e := range entries {
		if seen[string(e.DocumentType)+"/"+e.Number] {
			w.log.Info().Str("number", e.Number).Msg("Already registered, skipping")
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := f.SetSheetRow(w.sheet, cell, &[]any{
			string(e.DocumentType),
			e.Number,
			e.IssueDate,
			e.DueDate,
			e.Debtor,
			e.BaseAmt.Round(2).InexactFloat64(),
			e.VATAmt.Round(2).InexactFloat64(),
			e.TotalAmt.Round(2).InexactFloat64(),
			e.Currency,
			e.FileName,
			e.RemoteID,
			e.RecordedAt,
		}); err != nil {
			return fmt.Errorf("%s: failed to write row %d: %w", op, next, err)
		}
		seen[string(e.DocumentType)+"/"+e.Number] = true
		next++
		added++
	}
	if added == 0 {
		return nil
	}

	if err := w.style(f); err != nil {
		w.log.Warn().Err(err).Msg("Failed to style register, continuing anyway")
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("%s: failed to save %s: %w", op, w.path, err)
	}

	w.log.Info().Str("path", w.path).Int("rows_written", added).Msg("Register updated")
	return nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		if idx, _ := f.GetSheetIndex(w.sheet); idx < 0 {
			if _, err := f.NewSheet(w.sheet); err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to open %s: %w", w.path, err)
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (w *Workbook) style(f *excelize.File) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	stampStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return err
	}

	for _, step := range []func() error{
		func() error { return f.SetColStyle(w.sheet, "C:D", dateStyle) },
		func() error { return f.SetColStyle(w.sheet, "F:H", moneyStyle) },
		func() error { return f.SetColStyle(w.sheet, "L", stampStyle) },
		func() error { return f.SetRowStyle(w.sheet, 1, 1, bold) },
		func() error { return f.SetColWidth(w.sheet, "A", "B", 12) },
		func() error { return f.SetColWidth(w.sheet, "C", "D", 12) },
		func() error { return f.SetColWidth(w.sheet, "E", "E", 28) },
		func() error { return f.SetColWidth(w.sheet, "F", "H", 14) },
		func() error { return f.SetColWidth(w.sheet, "J", "L", 20) },
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
