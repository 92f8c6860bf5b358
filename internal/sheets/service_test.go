package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invoicer/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0", "1AbC-dEf_123", false},
		{"1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", false},
		{"https://example.com/nothing", "", true},
	}
	for _, tt := range tests {
		got, err := extractSpreadsheetID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("extractSpreadsheetID(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func entry(number string) models.RegisterEntry {
	return models.RegisterEntry{
		DocumentType: models.DocumentInvoice,
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

func TestRowToValues(t *testing.T) {
	row := rowToValues(entry("2024-8"))
	if len(row) != numColumns || len(headers) != numColumns {
		t.Fatalf("row has %d columns, headers %d", len(row), len(headers))
	}
	if row[2] != "10-03-2024" || row[3] != "09-04-2024" {
		t.Errorf("dates = %v, %v", row[2], row[3])
	}
	if row[7] != 550.01 {
		t.Errorf("total = %v", row[7])
	}
}

type fakeSheets struct {
	appended [][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		if strings.Contains(path, "A1:") {
			_, _ = w.Write([]byte(`{"values": [["Type", "Nummer"]]}`))
			return
		}
		_, _ = w.Write([]byte(`{"values": [["Type", "Nummer"], ["INVOICE", "2024-7"]]}`))
	case r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"sheets": [{"properties": {"title": "Register", "sheetId": 3}}]}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusBadRequest)
	}
}

func TestAppendSkipsRegisteredNumbers(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatal(err)
	}
	s := &Service{sheetsService: svc, spreadsheetID: "sheet-1", sheetName: "Register", log: zerolog.Nop()}

	if err := s.Append(context.Background(), []models.RegisterEntry{entry("2024-7"), entry("2024-8")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(fake.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(fake.appended))
	}
	if fake.appended[0][1] != "2024-8" {
		t.Errorf("appended row = %v", fake.appended[0])
	}
}
