package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ReferenceData is the whole reference store document.
type ReferenceData struct {
	Companies  map[string]*Company  `json:"companies"`
	Currencies map[string]*Currency `json:"currencies"`
	Defaults   Defaults             `json:"defaults"`
	Policies   map[string]string    `json:"policies"`
}

// Company is used for both creditors and debtors.
type Company struct {
	Attention     string         `json:"tav,omitempty"`
	BankAccount   string         `json:"bank_account"`
	City          string         `json:"city"`
	Country       string         `json:"country"`
	Email         string         `json:"email,omitempty"`
	LastSequences map[string]int `json:"last_sequences,omitempty"`
	Name          string         `json:"name"`
	Number        string         `json:"nr"`
	Phone         string         `json:"phone,omitempty"`
	RPR           string         `json:"rpr"`
	Street        string         `json:"street"`
	VAT           string         `json:"vat"`
	Zip           string         `json:"zip"`
}

// UnmarshalJSON accepts "number" as an alias of "nr"; inline debtor details
// use the long form.
func (c *Company) UnmarshalJSON(data []byte) error {
	type plain Company
	aux := struct {
		*plain
		LongNumber string `json:"number"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.Number == "" {
		c.Number = aux.LongNumber
	}
	return nil
}

// Clone returns a deep copy.
func (c *Company) Clone() *Company {
	out := *c
	if c.LastSequences != nil {
		out.LastSequences = make(map[string]int, len(c.LastSequences))
		for k, v := range c.LastSequences {
			out.LastSequences[k] = v
		}
	}
	return &out
}

// Currency carries the display symbol.
type Currency struct {
	Symbol string `json:"symbol"`
}

// Defaults are applied when a billing request leaves a field out.
type Defaults struct {
	Argenta         *TemplateDefaults `json:"argenta,omitempty"`
	CreditorID      string            `json:"creditor_id"`
	CurrencyID      string            `json:"currency_id"`
	Neon            *TemplateDefaults `json:"neon,omitempty"`
	PaymentTermDays int               `json:"payment_term_days,omitempty"`
	PolicyIDs       []string          `json:"policy_ids"`
}

// TemplateDefaults holds per-template defaults.
type TemplateDefaults struct {
	DayRate         *decimal.Decimal `json:"day_rate,omitempty"`
	ItemDescription string           `json:"item_description,omitempty"`
}

// MarshalJSON writes the day rate as a JSON number.
func (d TemplateDefaults) MarshalJSON() ([]byte, error) {
	type plain TemplateDefaults
	aux := struct {
		plain
		DayRate json.RawMessage `json:"day_rate,omitempty"`
	}{plain: plain(d)}
	if d.DayRate != nil {
		aux.DayRate = json.RawMessage(d.DayRate.String())
	}
	return json.Marshal(aux)
}

// ForTemplate returns the defaults block for a template, or nil.
func (d Defaults) ForTemplate(t Template) *TemplateDefaults {
	switch Template(strings.ToUpper(string(t))) {
	case TemplateArgenta:
		return d.Argenta
	case TemplateNeon:
		return d.Neon
	}
	return nil
}
