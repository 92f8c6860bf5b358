package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType selects what is generated and which sequence counter it draws from.
type DocumentType string

const (
	DocumentInvoice DocumentType = "INVOICE"
	DocumentOffer   DocumentType = "OFFER"
)

// ParseDocumentType accepts the type name in any case.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(strings.ToUpper(strings.TrimSpace(s))) {
	case DocumentInvoice:
		return DocumentInvoice, true
	case DocumentOffer:
		return DocumentOffer, true
	}
	return "", false
}

// SequenceKey is the last_sequences key for this type.
func (d DocumentType) SequenceKey() string {
	if d == DocumentOffer {
		return "offer"
	}
	return "invoice"
}

// NumberField is the header field that carries the document number.
func (d DocumentType) NumberField() string {
	if d == DocumentOffer {
		return "offer_nr"
	}
	return "invoice_nr"
}

// FilePrefix is used in the {prefix}_{number} output file name.
func (d DocumentType) FilePrefix() string {
	if d == DocumentOffer {
		return "O"
	}
	return "I"
}

// Template is the invoice computation template. Unknown values are kept
// as-is so the calculator can reject them.
type Template string

const (
	TemplateNeon    Template = "NEON"
	TemplateArgenta Template = "ARGENTA"
)

// ParseTemplate normalises a template name without validating it.
func ParseTemplate(s string) Template {
	return Template(strings.ToUpper(strings.TrimSpace(s)))
}

// LineItem is one computed row of the details table.
type LineItem struct {
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitAmt     decimal.Decimal `json:"unit_amt"`
	BaseAmt     decimal.Decimal `json:"base_amt"`
	VATPct      decimal.Decimal `json:"vat_pct"`
	VATAmt      decimal.Decimal `json:"vat_amt"`
	TotalAmt    decimal.Decimal `json:"total_amt"`
}

// Totals are the sums of the per-line amounts.
type Totals struct {
	BaseAmt  decimal.Decimal `json:"invoice_base_amt"`
	VATAmt   decimal.Decimal `json:"invoice_vat_amt"`
	TotalAmt decimal.Decimal `json:"invoice_total_amt"`
}

// ComputedInvoice is the calculator output.
type ComputedInvoice struct {
	Template Template   `json:"template"`
	Items    []LineItem `json:"items"`
	Totals   Totals     `json:"totals"`
}

// RegisterEntry is one row in the document register (sheet or workbook).
type RegisterEntry struct {
	DocumentType DocumentType
	Number       string
	IssueDate    time.Time
	DueDate      time.Time
	Debtor       string
	BaseAmt      decimal.Decimal
	VATAmt       decimal.Decimal
	TotalAmt     decimal.Decimal
	Currency     string
	FileName     string
	RemoteID     string
	RecordedAt   time.Time
}
