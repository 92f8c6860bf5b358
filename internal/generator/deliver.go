package generator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"invoicer/internal/document"
	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

// Uploader stores a file in a remote folder and returns its id.
type Uploader interface {
	Upload(ctx context.Context, path, folderID string) (string, error)
}

// Mailer sends a message with file attachments and returns its id.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string, attachments []string) (string, error)
}

// Register records generated documents.
type Register interface {
	Append(ctx context.Context, entries []models.RegisterEntry) error
}

// Delivery selects the delivery steps. Nil steps are skipped.
type Delivery struct {
	Uploader Uploader
	FolderID string

	Mailer  Mailer
	MailTo  []string // empty: the debtor's email
	Subject string   // empty: document title
	Body    string

	Register Register
	Currency string
}

// DeliveryResult records what delivery did.
type DeliveryResult struct {
	RemoteID   string `json:"remote_id,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	Registered bool   `json:"registered,omitempty"`
}

// Deliver uploads, mails and registers a confirmed document. Steps run
// independently; their errors are joined and wrapped in ErrDelivery.
// Nothing is retried.
func (r *Run) Deliver(ctx context.Context, d Delivery) (*DeliveryResult, error) {
	const op = "Deliver"

	if r.State != StateConfirmed {
		return nil, fmt.Errorf("%s: %w: run is %s", op, ErrInvalidState, r.State)
	}

	res := &DeliveryResult{}
	r.Delivery = res
	file := r.deliverable()
	var errs []error

	if d.Uploader != nil {
		if d.FolderID == "" {
			errs = append(errs, errors.New("upload: no folder configured"))
		} else if id, err := d.Uploader.Upload(ctx, file, d.FolderID); err != nil {
			errs = append(errs, fmt.Errorf("upload: %w", err))
		} else {
			res.RemoteID = id
			r.log.Info().Str("file_id", id).Msg("Document uploaded")
		}
	}

	if d.Mailer != nil {
		to := d.MailTo
		if len(to) == 0 && r.Data.Debtor.Email != "" {
			to = []string{r.Data.Debtor.Email}
		}
		if len(to) == 0 {
			errs = append(errs, errors.New("mail: no recipient"))
		} else {
			subject := d.Subject
			if subject == "" {
				subject = r.title()
			}
			body := d.Body
			if body == "" {
				body = r.mailBody()
			}
			if id, err := d.Mailer.Send(ctx, to, subject, body, []string{file}); err != nil {
				errs = append(errs, fmt.Errorf("mail: %w", err))
			} else {
				res.MessageID = id
				r.log.Info().Str("message_id", id).Strs("to", to).Msg("Document mailed")
			}
		}
	}

	if d.Register != nil {
		if err := d.Register.Append(ctx, []models.RegisterEntry{r.registerEntry(d.Currency, file, res.RemoteID)}); err != nil {
			errs = append(errs, fmt.Errorf("register: %w", err))
		} else {
			res.Registered = true
		}
	}

	if len(errs) > 0 {
		err := &invoice.GenerationError{Op: op, Err: fmt.Errorf("%w: %w", invoice.ErrDelivery, errors.Join(errs...))}
		r.log.Error().Err(err).Msg("Delivery incomplete")
		return res, err
	}
	return res, nil
}

// deliverable is the PDF when there is one, else the .docx.
func (r *Run) deliverable() string {
	if r.Output.PDFPath != "" {
		return r.Output.PDFPath
	}
	return r.Output.DocxPath
}

func (r *Run) title() string {
	if r.DocumentType == models.DocumentOffer {
		return "Offerte " + r.Allocation.Number
	}
	return "Factuur " + r.Allocation.Number
}

func (r *Run) mailBody() string {
	var b strings.Builder
	b.WriteString("Beste,\n\n")
	fmt.Fprintf(&b, "In bijlage vindt u %s.\n", strings.ToLower(r.title()[:1])+r.title()[1:])
	if r.DocumentType == models.DocumentInvoice && !r.Data.Paid() {
		fmt.Fprintf(&b, "Gelieve %s te betalen voor %s.\n",
			document.FormatMoney(r.Data.CurrencySymbol, r.Invoice.Totals.TotalAmt),
			invoice.FormatDate(r.Data.DueDate))
	}
	b.WriteString("\nMet vriendelijke groeten,\n")
	if r.Data.Creditor != nil {
		b.WriteString(r.Data.Creditor.Name)
		b.WriteString("\n")
	}
	return b.String()
}

func (r *Run) registerEntry(currency, file, remoteID string) models.RegisterEntry {
	if currency == "" {
		currency = r.Data.CurrencySymbol
	}
	return models.RegisterEntry{
		DocumentType: r.DocumentType,
		Number:       r.Allocation.Number,
		IssueDate:    r.Data.InvoiceDate,
		DueDate:      r.Data.DueDate,
		Debtor:       r.Data.Debtor.Name,
		BaseAmt:      r.Invoice.Totals.BaseAmt,
		VATAmt:       r.Invoice.Totals.VATAmt,
		TotalAmt:     r.Invoice.Totals.TotalAmt,
		Currency:     currency,
		FileName:     filepath.Base(file),
		RemoteID:     remoteID,
		RecordedAt:   r.gen.now(),
	}
}
