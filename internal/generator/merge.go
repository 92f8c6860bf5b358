package generator

import (
	"fmt"
	"time"

	"invoicer/internal/document"
	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

// DefaultPaymentTermDays applies when the store has no payment_term_days.
const DefaultPaymentTermDays = 30

type merged struct {
	creditorID string
	input      invoice.CalculationInput
	data       *document.Data
}

// merge fills everything the request left out from the reference store.
func (g *Generator) merge(req *invoice.Request) (*merged, error) {
	defaults := g.store.Defaults()

	creditorID := req.CreditorID
	if creditorID == "" {
		creditorID = defaults.CreditorID
	}
	if creditorID == "" {
		return nil, fmt.Errorf("%w: no creditor_id in request or defaults", invoice.ErrReferenceLookup)
	}
	creditor, err := g.store.Company(creditorID)
	if err != nil {
		return nil, err
	}

	var debtor *models.Company
	if req.DebtorDetails != nil {
		debtor = req.DebtorDetails.Clone()
	} else {
		d, err := g.store.Company(req.DebtorID)
		if err != nil {
			return nil, err
		}
		debtor = d.Clone()
	}

	currencyID := req.CurrencyID
	if currencyID == "" {
		currencyID = defaults.CurrencyID
	}
	currency, err := g.store.Currency(currencyID)
	if err != nil {
		return nil, err
	}

	policyIDs := req.PolicyIDs
	if policyIDs == nil {
		policyIDs = defaults.PolicyIDs
	}
	policies := make([]string, 0, len(policyIDs))
	for _, id := range policyIDs {
		text, err := g.store.Policy(id)
		if err != nil {
			return nil, err
		}
		policies = append(policies, text)
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		now := g.now()
		invoiceDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		term := defaults.PaymentTermDays
		if term <= 0 {
			term = DefaultPaymentTermDays
		}
		dueDate = invoiceDate.AddDate(0, 0, term)
	}

	input, err := calculationInput(req, defaults)
	if err != nil {
		return nil, err
	}

	return &merged{
		creditorID: creditorID,
		input:      input,
		data: &document.Data{
			DocumentType:   req.EffectiveDocumentType(),
			InvoiceDate:    invoiceDate,
			DeliveryDate:   req.DeliveryDate,
			DueDate:        dueDate,
			PaymentDate:    req.PaymentDate,
			Period:         req.Period,
			Debtor:         debtor,
			Creditor:       creditor.Clone(),
			CurrencySymbol: currency.Symbol,
			Policies:       policies,
			LogoPath:       g.logoPath,
		},
	}, nil
}

func calculationInput(req *invoice.Request, defaults models.Defaults) (invoice.CalculationInput, error) {
	in := invoice.CalculationInput{Items: req.Items}
	if req.EffectiveTemplate() != models.TemplateArgenta {
		return in, nil
	}

	if req.ConsultancyDays != nil {
		in.ConsultancyDays = *req.ConsultancyDays
	}
	td := defaults.ForTemplate(models.TemplateArgenta)

	switch {
	case req.DayRate != nil:
		in.DayRate = *req.DayRate
	case td != nil && td.DayRate != nil:
		in.DayRate = *td.DayRate
	default:
		return in, fmt.Errorf("%w: no day_rate in request or defaults.argenta", invoice.ErrReferenceLookup)
	}

	switch {
	case req.ItemDescription != "":
		in.Description = req.ItemDescription
	case td != nil && td.ItemDescription != "":
		in.Description = td.ItemDescription
	default:
		return in, fmt.Errorf("%w: no item_description in request or defaults.argenta", invoice.ErrReferenceLookup)
	}
	return in, nil
}
