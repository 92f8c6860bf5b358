package ocr

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"invoicer/internal/invoice"
)

var (
	labelledNumberRe = regexp.MustCompile(`(?i)(?:factuur|offerte)\s*nr\.?\s*:?\s*((?:19|20)\d{2}-\d+)\b`)
	numberRe         = regexp.MustCompile(`\b((?:19|20)\d{2}-\d+)\b`)
	moneyRe          = regexp.MustCompile(`-?\b\d{1,3}(?:\.\d{3})*,\d{2}\b`)
)

// AmountReader recovers the totals block from OCR text. It implements
// invoice.AmountExtractor.
type AmountReader struct {
	ocr TextExtractor
}

// NewAmountReader wraps a text extractor.
func NewAmountReader(ocr TextExtractor) *AmountReader {
	return &AmountReader{ocr: ocr}
}

// Extract reads the PDF text and parses the amounts from it.
func (r *AmountReader) Extract(ctx context.Context, pdfData io.Reader) (*invoice.ExtractedAmounts, error) {
	res, err := r.ocr.ProcessPDF(ctx, pdfData)
	if err != nil {
		return nil, err
	}
	out := ParseAmounts(res.Text)
	out.Confidence["text"] = res.Confidence
	out.ProcessingTime = res.ProcessingDuration
	return out, nil
}

// ParseAmounts finds the document number and the Subtotaal, BTW and Totaal
// amounts in the text of a rendered document. Amounts are either on the
// label lines or, when the table columns are read one after the other, on
// the first three amount lines after the labels. Anything not found is nil.
func ParseAmounts(text string) *invoice.ExtractedAmounts {
	out := &invoice.ExtractedAmounts{Confidence: make(map[string]float32)}

	if m := labelledNumberRe.FindStringSubmatch(text); m != nil {
		out.Number = m[1]
	} else if m := numberRe.FindStringSubmatch(text); m != nil {
		out.Number = m[1]
	}
	if strings.Contains(text, "€") {
		out.Currency = "EUR"
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	start := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.ToLower(l), "subtotaal") {
			start = i
			break
		}
	}
	if start < 0 {
		return out
	}

	targets := []**decimal.Decimal{&out.NetAmt, &out.VATAmt, &out.TotalAmt}

	if lastMoney(lines[start]) != nil {
		for k, target := range targets {
			if start+k < len(lines) {
				*target = lastMoney(lines[start+k])
			}
		}
		return out
	}

	k := 0
	for _, l := range lines[start+1:] {
		if k == len(targets) {
			break
		}
		if amt := lastMoney(l); amt != nil {
			*targets[k] = amt
			k++
		}
	}
	return out
}

func lastMoney(line string) *decimal.Decimal {
	matches := moneyRe.FindAllString(line, -1)
	if len(matches) == 0 {
		return nil
	}
	d, err := invoice.ParseAmount(matches[len(matches)-1])
	if err != nil {
		return nil
	}
	return &d
}
