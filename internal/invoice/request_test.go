package invoice

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"invoicer/pkg/models"
)

const neonRequest = `{
	"debtor_id": "acme",
	"delivery_date": "05-03-2024",
	"items": {
		"2": {"description": "Hosting", "qty": 1, "price": 25, "vat_pct": 0.21},
		"1": {"description": "Development", "qty": 1, "price": "429.55", "vat_pct": 0.21, "total_amt": 1}
	}
}`

func TestParseRequestKeepsItemOrder(t *testing.T) {
	req, err := ParseRequest([]byte(neonRequest), FormatJSON, Overrides{})
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if len(req.Items) != 2 || req.Items[0].Key != "2" || req.Items[1].Key != "1" {
		t.Fatalf("items = %+v, want keys in file order 2, 1", req.Items)
	}
	if !req.Items[1].Price.Equal(d("429.55")) {
		t.Errorf("price = %s", req.Items[1].Price)
	}
	if want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC); !req.DeliveryDate.Equal(want) {
		t.Errorf("delivery date = %v, want %v", req.DeliveryDate, want)
	}
	if len(req.IgnoredFields) != 1 || req.IgnoredFields[0] != "items.1.total_amt" {
		t.Errorf("ignored = %v", req.IgnoredFields)
	}
	if req.EffectiveTemplate() != models.TemplateNeon || req.EffectiveDocumentType() != models.DocumentInvoice {
		t.Errorf("defaults = %s/%s", req.EffectiveTemplate(), req.EffectiveDocumentType())
	}
}

func TestParseRequestYAML(t *testing.T) {
	doc := `
template: argenta
document_type: offer
debtor_id: acme
delivery_date: 2024-03-05
consultancy_days: 4
day_rate: 625.50
policy_ids: [privacy]
`
	req, err := ParseRequest([]byte(doc), FormatYAML, Overrides{})
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Template != models.TemplateArgenta {
		t.Errorf("template = %q", req.Template)
	}
	if req.DocumentType != models.DocumentOffer {
		t.Errorf("document type = %q", req.DocumentType)
	}
	if req.ConsultancyDays == nil || !req.ConsultancyDays.Equal(d("4")) {
		t.Errorf("consultancy days = %v", req.ConsultancyDays)
	}
	if req.DayRate == nil || !req.DayRate.Equal(d("625.50")) {
		t.Errorf("day rate = %v", req.DayRate)
	}
	if len(req.PolicyIDs) != 1 || req.PolicyIDs[0] != "privacy" {
		t.Errorf("policies = %v", req.PolicyIDs)
	}
}

func TestParseRequestOverrides(t *testing.T) {
	req, err := ParseRequest([]byte(neonRequest), FormatJSON, Overrides{DocumentType: models.DocumentOffer})
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.EffectiveDocumentType() != models.DocumentOffer {
		t.Errorf("document type = %s, want OFFER", req.EffectiveDocumentType())
	}
}

func TestParseRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		field   string
	}{
		{
			name:    "missing delivery date",
			body:    `{"debtor_id": "acme", "items": {"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrMissingField,
			field:   "delivery_date",
		},
		{
			name:    "missing items",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024"}`,
			wantErr: ErrMissingField,
			field:   "items",
		},
		{
			name:    "empty items",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {}}`,
			wantErr: ErrInvalidField,
			field:   "items",
		},
		{
			name:    "argenta without days",
			body:    `{"template": "ARGENTA", "debtor_id": "acme", "delivery_date": "01-01-2024"}`,
			wantErr: ErrMissingField,
			field:   "consultancy_days",
		},
		{
			name:    "no debtor",
			body:    `{"delivery_date": "01-01-2024", "items": {"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrMissingField,
			field:   "debtor_id or debtor_details",
		},
		{
			name: "both debtor forms",
			body: `{"debtor_id": "acme", "debtor_details": {"name": "A"}, "delivery_date": "01-01-2024",
				"items": {"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrInvalidField,
			field:   "debtor_id",
		},
		{
			name: "incomplete debtor details",
			body: `{"debtor_details": {"name": "A", "street": "S", "number": "1", "city": "C", "zip": "1000",
				"country": "BE", "vat": "BE0", "bank_account": "BE00"}, "delivery_date": "01-01-2024",
				"items": {"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrMissingField,
			field:   "debtor_details.rpr",
		},
		{
			name:    "item without description",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {"1": {"qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrMissingField,
			field:   "items.1.description",
		},
		{
			name:    "item without quantity",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {"1": {"description": "x", "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrMissingField,
			field:   "items.1.qty",
		},
		{
			name:    "item without vat",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {"1": {"description": "x", "qty": 1, "price": 1}}}`,
			wantErr: ErrMissingField,
			field:   "items.1.vat_pct",
		},
		{
			name: "second item incomplete",
			body: `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {
				"a": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21},
				"b": {"description": "y", "qty": 1, "price": 1}}}`,
			wantErr: ErrMissingField,
			field:   "items.b.vat_pct",
		},
		{
			name:    "item without price",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {"1": {"description": "x", "qty": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrMissingField,
			field:   "items.1.price",
		},
		{
			name:    "negative quantity",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {"1": {"description": "x", "qty": -1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrInvalidField,
			field:   "items.1.qty",
		},
		{
			name:    "vat given as percent",
			body:    `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 21}}}`,
			wantErr: ErrInvalidField,
			field:   "items.1.vat_pct",
		},
		{
			name: "duplicate item key",
			body: `{"debtor_id": "acme", "delivery_date": "01-01-2024", "items": {
				"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21},
				"1": {"description": "y", "qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrInvalidField,
			field:   "items.1",
		},
		{
			name:    "bad date",
			body:    `{"debtor_id": "acme", "delivery_date": "March 5th", "items": {"1": {"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21}}}`,
			wantErr: ErrInvalidField,
			field:   "delivery_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest([]byte(tt.body), FormatJSON, Overrides{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err %T is not a *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestParseRequestDebtorDetailsRequired(t *testing.T) {
	required := []string{"name", "street", "number", "city", "zip", "country", "vat", "bank_account", "rpr"}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			details := make(map[string]string)
			for _, key := range required {
				if key != missing {
					details[key] = "value"
				}
			}
			body, err := json.Marshal(map[string]interface{}{
				"debtor_details": details,
				"delivery_date":  "01-01-2024",
				"items": map[string]interface{}{
					"1": map[string]interface{}{"description": "x", "qty": 1, "price": 1, "vat_pct": 0.21},
				},
			})
			if err != nil {
				t.Fatal(err)
			}

			_, err = ParseRequest(body, FormatJSON, Overrides{})
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("err = %v, want ErrMissingField", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != "debtor_details."+missing {
				t.Errorf("err = %v, want field debtor_details.%s", err, missing)
			}
		})
	}
}

func TestParseRequestInlineDebtor(t *testing.T) {
	body := `{"debtor_details": {"name": "Acme", "street": "Main", "number": "12", "city": "Gent", "zip": "9000",
		"country": "BE", "vat": "BE0123", "bank_account": "BE71", "rpr": "Gent", "tav": "Finance"},
		"delivery_date": "01-01-2024",
		"items": {"1": {"description": "x", "qty": 1, "unit_amt": 1, "vat_pct": 0.21}}}`

	req, err := ParseRequest([]byte(body), FormatJSON, Overrides{})
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.DebtorDetails == nil || req.DebtorDetails.Number != "12" || req.DebtorDetails.Attention != "Finance" {
		t.Errorf("debtor details = %+v", req.DebtorDetails)
	}
	if !req.Items[0].Price.Equal(d("1")) {
		t.Errorf("unit_amt not accepted as price: %s", req.Items[0].Price)
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"1.234,56":  "1234.56",
		"€ 550,01":  "550.01",
		"1,234.56":  "1234.56",
		"3025.00":   "3025",
		"EUR 95,45": "95.45",
	}
	for in, want := range tests {
		got, err := ParseAmount(in)
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", in, err)
			continue
		}
		if !got.Equal(d(want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}
}
