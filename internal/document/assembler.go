package document

import (
	"fmt"
	"strings"
	"time"

	"invoicer/pkg/models"
)

const dateLayout = "02-01-2006"

// Data is everything the assembler puts on a document. It is built by the
// generator after defaults are merged.
type Data struct {
	DocumentType models.DocumentType
	Number       string

	InvoiceDate  time.Time
	DeliveryDate time.Time
	DueDate      time.Time
	PaymentDate  time.Time // zero when unpaid
	Period       string    // replaces the delivery date when set

	Debtor   *models.Company
	Creditor *models.Company

	CurrencySymbol string
	Invoice        *models.ComputedInvoice
	Policies       []string

	LogoPath string
}

// Paid reports whether a payment date was given.
func (d *Data) Paid() bool {
	return !d.PaymentDate.IsZero()
}

type labels struct {
	title, number, date, due string
}

func labelsFor(t models.DocumentType) labels {
	if t == models.DocumentOffer {
		return labels{title: "Offerte", number: "Offerte nr.", date: "Offertedatum", due: "Geldig tot"}
	}
	return labels{title: "Factuur", number: "Factuur nr.", date: "Factuurdatum", due: "Vervaldag"}
}

// Assembler builds document trees with a fixed layout.
type Assembler struct {
	// LogoWidthCm is the width of the logo in the first-page header.
	LogoWidthCm float64
}

// NewAssembler returns an assembler with the default layout.
func NewAssembler() *Assembler {
	return &Assembler{LogoWidthCm: 7.5}
}

// Assemble lays out data as a document tree.
func (a *Assembler) Assemble(data *Data) *Tree {
	l := labelsFor(data.DocumentType)
	footer := a.footer(data.Creditor)

	return &Tree{
		Title:       fmt.Sprintf("%s %s", l.title, data.Number),
		FirstHeader: []Block{a.header(data, l)},
		Body:        a.body(data),
		FirstFooter: []Block{footer},
		Footer:      []Block{a.footer(data.Creditor)},
	}
}

func (a *Assembler) header(data *Data, l labels) *Table {
	t := NewTable(2, 7.5, 4, 7.5)
	t.Borders = NoBorders

	t.Cell(0, 0).Paragraph(StyleHeading1, AlignLeft).Text(l.title)
	logo := t.Merge(0, 1, 2).Paragraph(StyleNormal, AlignRight)
	if data.LogoPath != "" {
		logo.Picture(Image{Path: data.LogoPath, WidthCm: a.LogoWidthCm})
	}

	deliveryLabel, delivery, tabs := "Leveringsdatum", formatDate(data.DeliveryDate), 1
	if data.Period != "" {
		deliveryLabel, delivery, tabs = "Periode", data.Period, 2
	}

	details := t.Cell(1, 0).Paragraph(StyleNormal, AlignLeft)
	details.Text(l.number).Tab(1).Text(data.Number).Break()
	details.Text(l.date).Tab(1).Text(formatDate(data.InvoiceDate)).Break()
	details.Text(deliveryLabel).Tab(tabs).Text(delivery).Break()
	details.Text(l.due).Tab(1).Text(formatDate(data.DueDate))

	t.Cell(1, 1).Paragraph(StyleNormal, AlignLeft)

	debtor := t.Cell(1, 2).Paragraph(StyleNormal, AlignLeft)
	if d := data.Debtor; d != nil {
		debtor.Text(d.Name).Break()
		if d.Attention != "" {
			debtor.Text("t.a.v. " + d.Attention).Break()
		}
		debtor.Text(joinNonEmpty(" ", d.Street, d.Number)).Break()
		debtor.Text(joinNonEmpty(" ", d.Zip, d.City)).Break()
		debtor.Text(d.Country)
	}

	ApplyBorders(t)
	return t
}

func (a *Assembler) body(data *Data) []Block {
	sym := data.CurrencySymbol
	inv := data.Invoice

	blocks := []Block{
		(&Paragraph{Style: StyleHeading2}).Text("Details"),
	}

	t := NewTable(len(inv.Items)+2, 5.5, 1.5, 3, 3, 3, 3)
	t.Borders = Detail1

	headings := []string{"Product beschrijving", "Aantal", "Eenheidsprijs", "Bedrag excl. BTW", vatHeading(inv.Items), "Bedrag incl. BTW"}
	for i, h := range headings {
		t.Cell(0, i).Paragraph(StyleNormal, AlignLeft).Text(h)
	}

	for i, item := range inv.Items {
		r := i + 1
		t.Cell(r, 0).Paragraph(StyleNormal, AlignLeft).Text(item.Description)
		t.Cell(r, 1).Paragraph(StyleNormal, AlignLeft).Text(FormatQty(item.Qty))
		t.Cell(r, 2).Paragraph(StyleNormal, AlignLeft).Text(FormatMoney(sym, item.UnitAmt))
		t.Cell(r, 3).Paragraph(StyleNormal, AlignLeft).Text(FormatMoney(sym, item.BaseAmt))
		t.Cell(r, 4).Paragraph(StyleNormal, AlignLeft).Text(FormatMoney(sym, item.VATAmt))
		t.Cell(r, 5).Paragraph(StyleNormal, AlignLeft).Text(FormatMoney(sym, item.TotalAmt))
	}

	last := len(inv.Items) + 1
	for i := 0; i < 4; i++ {
		t.Cell(last, i).Paragraph(StyleNormal, AlignLeft)
	}
	t.Cell(last, 4).Paragraph(StyleNormal, AlignLeft).
		Text("Subtotaal").Break().
		Text("BTW").Break().
		Bold("Totaal")
	t.Cell(last, 5).Paragraph(StyleNormal, AlignLeft).
		Text(FormatMoney(sym, inv.Totals.BaseAmt)).Break().
		Text(FormatMoney(sym, inv.Totals.VATAmt)).Break().
		Bold(FormatMoney(sym, inv.Totals.TotalAmt))

	ApplyBorders(t)
	blocks = append(blocks, t)

	trailing := (&Paragraph{Style: StyleNormal}).Break()
	trailing.Text(trailingMessage(data))
	blocks = append(blocks, trailing)

	for _, policy := range data.Policies {
		blocks = append(blocks, (&Paragraph{Style: StyleIndent}).Text(policy))
	}
	return blocks
}

func trailingMessage(data *Data) string {
	total := FormatMoney(data.CurrencySymbol, data.Invoice.Totals.TotalAmt)
	switch {
	case data.DocumentType == models.DocumentOffer:
		return fmt.Sprintf("Deze offerte ten bedrage van %s is geldig tot %s.", total, formatDate(data.DueDate))
	case data.Paid():
		return fmt.Sprintf("Dit factuur is betaald op %s.", formatDate(data.PaymentDate))
	default:
		account := ""
		if data.Creditor != nil {
			account = data.Creditor.BankAccount
		}
		return fmt.Sprintf("Gelieve het factuurbedrag van %s te betalen voor %s op rekeningnummer %s.",
			total, formatDate(data.DueDate), account)
	}
}

func (a *Assembler) footer(c *models.Company) *Table {
	t := NewTable(1, 6.5, 6, 6.5)
	t.Borders = NoBorders
	if c == nil {
		c = &models.Company{}
	}

	t.Cell(0, 0).Paragraph(StyleFooter, AlignCenter).
		Text(c.Name).Break().
		Text(joinNonEmpty(" ", c.Street, c.Number)).Break().
		Text(joinNonEmpty(" ", c.Zip, c.City, c.Country))
	t.Cell(0, 1).Paragraph(StyleFooter, AlignCenter).
		Text("rpr " + c.RPR).Break().
		Text("btw " + c.VAT).Break().
		Text("rek " + c.BankAccount)
	t.Cell(0, 2).Paragraph(StyleFooter, AlignCenter).
		Text("tel " + c.Phone).Break().
		Text(c.Email).Break().
		Text("Pagina ").PageNumber()

	ApplyBorders(t)
	return t
}

// vatHeading names the rate when every line shares it.
func vatHeading(items []models.LineItem) string {
	if len(items) == 0 {
		return "BTW"
	}
	rate := items[0].VATPct
	for _, it := range items[1:] {
		if !it.VATPct.Equal(rate) {
			return "BTW"
		}
	}
	return fmt.Sprintf("BTW (%s)", FormatPercent(rate))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
