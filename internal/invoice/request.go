package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/pkg/models"
)

// DateLayout is how dates are rendered on documents.
const DateLayout = "02-01-2006"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
}

// Request is a validated billing request. Internal components only ever see
// this type, never the raw file contents.
type Request struct {
	// DocumentType and Template are empty when neither the file nor the
	// caller chose one.
	DocumentType models.DocumentType
	Template     models.Template

	DebtorID      string
	DebtorDetails *models.Company
	CreditorID    string
	CurrencyID    string
	PolicyIDs     []string

	InvoiceDate  time.Time // zero when not given
	DeliveryDate time.Time
	DueDate      time.Time // zero when not given
	PaymentDate  time.Time // zero when unpaid
	Period       string

	Items []CalculationItem

	ConsultancyDays *decimal.Decimal
	DayRate         *decimal.Decimal
	ItemDescription string

	// IgnoredFields lists caller-supplied amounts that are always computed.
	IgnoredFields []string
}

// Overrides are applied on top of what the request file says, usually
// from command line flags.
type Overrides struct {
	DocumentType models.DocumentType
	Template     models.Template
}

// EffectiveTemplate returns the template to compute with.
func (r *Request) EffectiveTemplate() models.Template {
	if r.Template == "" {
		return models.TemplateNeon
	}
	return r.Template
}

// EffectiveDocumentType returns the document type to generate.
func (r *Request) EffectiveDocumentType() models.DocumentType {
	if r.DocumentType == "" {
		return models.DocumentInvoice
	}
	return r.DocumentType
}

// validate turns the raw decoded request into a Request. It stops at the
// first failure.
func (raw *rawRequest) validate(ov Overrides) (*Request, error) {
	req := &Request{
		CreditorID:      strings.TrimSpace(raw.CreditorID),
		CurrencyID:      strings.TrimSpace(raw.CurrencyID),
		PolicyIDs:       raw.PolicyIDs,
		Period:          strings.TrimSpace(raw.Period),
		ItemDescription: raw.ItemDescription,
		ConsultancyDays: raw.ConsultancyDays,
		DayRate:         raw.DayRate,
	}

	// document type and template
	req.DocumentType = ov.DocumentType
	if req.DocumentType == "" && raw.DocumentType != "" {
		dt, ok := models.ParseDocumentType(raw.DocumentType)
		if !ok {
			return nil, invalidField("document_type", "unknown document type %q", raw.DocumentType)
		}
		req.DocumentType = dt
	}
	req.Template = ov.Template
	if req.Template == "" && raw.Template != "" {
		req.Template = models.ParseTemplate(raw.Template)
	}

	// level 1
	if raw.DeliveryDate == nil || strings.TrimSpace(*raw.DeliveryDate) == "" {
		return nil, missingField("delivery_date")
	}
	switch req.EffectiveTemplate() {
	case models.TemplateNeon:
		if raw.Items == nil {
			return nil, missingField("items")
		}
		if len(raw.Items.keys) == 0 {
			return nil, invalidField("items", "at least one item is required")
		}
	case models.TemplateArgenta:
		if raw.ConsultancyDays == nil {
			return nil, missingField("consultancy_days")
		}
	}

	// debtor
	hasID := raw.DebtorID != nil && strings.TrimSpace(*raw.DebtorID) != ""
	hasDetails := raw.DebtorDetails != nil
	switch {
	case !hasID && !hasDetails:
		return nil, missingField("debtor_id or debtor_details")
	case hasID && hasDetails:
		return nil, invalidField("debtor_id", "give either debtor_id or debtor_details, not both")
	case hasID:
		req.DebtorID = strings.TrimSpace(*raw.DebtorID)
	default:
		if err := checkDebtorDetails(raw.DebtorDetails); err != nil {
			return nil, err
		}
		req.DebtorDetails = raw.DebtorDetails
	}

	// items
	if raw.Items != nil {
		if raw.Items.duplicate != "" {
			return nil, invalidField("items."+raw.Items.duplicate, "duplicate item key")
		}
		for i, key := range raw.Items.keys {
			item, ignored, err := raw.Items.items[i].validate(key)
			if err != nil {
				return nil, err
			}
			req.Items = append(req.Items, item)
			req.IgnoredFields = append(req.IgnoredFields, ignored...)
		}
	}

	if raw.ConsultancyDays != nil && raw.ConsultancyDays.IsNegative() {
		return nil, invalidField("consultancy_days", "must not be negative")
	}
	if raw.DayRate != nil && raw.DayRate.IsNegative() {
		return nil, invalidField("day_rate", "must not be negative")
	}

	// dates
	var err error
	if req.DeliveryDate, err = parseDate("delivery_date", *raw.DeliveryDate); err != nil {
		return nil, err
	}
	if req.InvoiceDate, err = parseOptionalDate("invoice_date", raw.InvoiceDate); err != nil {
		return nil, err
	}
	if req.DueDate, err = parseOptionalDate("due_date", raw.DueDate); err != nil {
		return nil, err
	}
	if req.PaymentDate, err = parseOptionalDate("payment_date", raw.PaymentDate); err != nil {
		return nil, err
	}

	return req, nil
}

func checkDebtorDetails(c *models.Company) error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", c.Name},
		{"street", c.Street},
		{"number", c.Number},
		{"city", c.City},
		{"zip", c.Zip},
		{"country", c.Country},
		{"vat", c.VAT},
		{"bank_account", c.BankAccount},
		{"rpr", c.RPR},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return missingField("debtor_details." + f.name)
		}
	}
	return nil
}

func (it rawItem) validate(key string) (CalculationItem, []string, error) {
	prefix := "items." + key + "."

	if it.Description == nil {
		return CalculationItem{}, nil, missingField(prefix + "description")
	}
	if it.Qty == nil {
		return CalculationItem{}, nil, missingField(prefix + "qty")
	}
	price := it.Price
	if price == nil {
		price = it.UnitAmt
	}
	if price == nil {
		return CalculationItem{}, nil, missingField(prefix + "price")
	}
	if it.VATPct == nil {
		return CalculationItem{}, nil, missingField(prefix + "vat_pct")
	}

	if it.Qty.IsNegative() {
		return CalculationItem{}, nil, invalidField(prefix+"qty", "must not be negative")
	}
	if price.IsNegative() {
		return CalculationItem{}, nil, invalidField(prefix+"price", "must not be negative")
	}
	if it.VATPct.IsNegative() || it.VATPct.GreaterThan(decimal.NewFromInt(1)) {
		return CalculationItem{}, nil, invalidField(prefix+"vat_pct", "must be a fraction between 0 and 1, got %s", it.VATPct)
	}

	var ignored []string
	if it.BaseAmt != nil {
		ignored = append(ignored, prefix+"base_amt")
	}
	if it.VATAmt != nil {
		ignored = append(ignored, prefix+"vat_amt")
	}
	if it.TotalAmt != nil {
		ignored = append(ignored, prefix+"total_amt")
	}

	return CalculationItem{
		Key:         key,
		Description: *it.Description,
		Qty:         *it.Qty,
		Price:       *price,
		VATPct:      *it.VATPct,
	}, ignored, nil
}

func parseOptionalDate(field string, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return parseDate(field, value)
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidField(field, "unrecognised date %q (use dd-mm-yyyy)", value)
}

// FormatDate renders a date the way documents show it.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// String is used in log lines.
func (r *Request) String() string {
	debtor := r.DebtorID
	if debtor == "" && r.DebtorDetails != nil {
		debtor = r.DebtorDetails.Name
	}
	return fmt.Sprintf("%s/%s debtor=%s items=%d", r.EffectiveDocumentType(), r.EffectiveTemplate(), debtor, len(r.Items))
}
