package sheets

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Scope allows reading and writing spreadsheets.
const Scope = sheets.SpreadsheetsScope

const (
	dateLayout = "02-01-2006"
	lastColumn = "L"
	numColumns = 12
)

var headers = []interface{}{
	"Type", "Nummer", "Datum", "Vervaldag", "Klant", "Excl. BTW",
	"BTW", "Incl. BTW", "Munt", "Bestand", "Drive id", "Geregistreerd",
}

// Service appends register entries to a Google Sheet
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	sheetName     string
	log           zerolog.Logger
}

// NewSheetsService creates a register backed by the sheet named sheetName
// in the spreadsheet at sheetURL. Pass option.WithHTTPClient with a client
// from gauth.
func NewSheetsService(ctx context.Context, sheetURL, sheetName string, opts ...option.ClientOption) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	if sheetName == "" {
		sheetName = "Register"
	}
	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           log,
	}, nil
}

// extractSpreadsheetID accepts a full Google Sheets URL or a bare id
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	if matches := re.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}
	if regexp.MustCompile(`^[a-zA-Z0-9-_]{20,}$`).MatchString(url) {
		return url, nil
	}
	return "", fmt.Errorf("invalid Google Sheets URL format")
}

// Append adds one row per entry. Entries whose type and number are already
// in the sheet are skipped, so a repeated delivery does not duplicate rows.
func (s *Service) Append(ctx context.Context, entries []models.RegisterEntry) error {
	const op = "Append"

	if err := s.ensureSheetWithHeaders(ctx); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	existing, err := s.ReadRange(ctx, s.sheetName+"!A:B")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	seen := make(map[string]bool, len(existing))
	for _, row := range existing {
		if len(row) >= 2 {
			seen[fmt.Sprint(row[0])+"/"+fmt.Sprint(row[1])] = true
		}
	}

	var values [][]interface{}
	for _, e := range entries {
		if seen[string(e.DocumentType)+"/"+e.Number] {
			s.log.Info().Str("number", e.Number).Msg("Already registered, skipping")
			continue
		}
		values = append(values, rowToValues(e))
	}
	if len(values) == 0 {
		return nil
	}

	_, err = s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		s.sheetName+"!A:"+lastColumn,
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Str("sheet", s.sheetName).
		Int("rows_written", len(values)).
		Msg("Register updated")
	return nil
}

// rowToValues converts an entry to a sheet row, A to L
func rowToValues(e models.RegisterEntry) []interface{} {
	return []interface{}{
		string(e.DocumentType),
		e.Number,
		formatDate(e.IssueDate),
		formatDate(e.DueDate),
		e.Debtor,
		e.BaseAmt.InexactFloat64(),
		e.VATAmt.InexactFloat64(),
		e.TotalAmt.InexactFloat64(),
		e.Currency,
		e.FileName,
		e.RemoteID,
		e.RecordedAt.Format("02-01-2006 15:04:05"),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ensureSheetWithHeaders ensures the sheet exists and has the header row
func (s *Service) ensureSheetWithHeaders(ctx context.Context) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", s.sheetName).Msg("Creating new sheet")

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: s.sheetName}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", s.sheetName, lastColumn)
	first, err := s.ReadRange(ctx, headerRange)
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(first) > 0 && len(first[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", s.sheetName).Msg("Adding headers to sheet")
	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{headers}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and freezes it
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   numColumns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}

// ReadRange reads values from a specified range in the spreadsheet
func (s *Service) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	const op = "ReadRange"

	s.log.Debug().Str("range", rangeSpec).Msg("Reading range from spreadsheet")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, rangeSpec, err)
	}
	return resp.Values, nil
}
