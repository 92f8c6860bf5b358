package invoice

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// AmountTolerance is the largest difference between a computed and an
// extracted amount that is not reported.
var AmountTolerance = decimal.RequireFromString("0.01")

// AmountValidation compares computed totals with amounts read back from the
// rendered document.
type AmountValidation struct {
	extractor AmountExtractor
	log       zerolog.Logger
}

// NewAmountValidation creates a new amount validation service.
func NewAmountValidation(extractor AmountExtractor) *AmountValidation {
	return &AmountValidation{
		extractor: extractor,
		log:       logger.WithComponent("amount-validation"),
	}
}

// Verify reads pdfPath back and reconciles it against the computed totals.
// Discrepancies are warnings; only a failed read is an error.
func (av *AmountValidation) Verify(ctx context.Context, pdfPath, number string, totals models.Totals) (*VerificationResult, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	defer f.Close()

	extracted, err := av.extractor.Extract(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return av.Reconcile(number, totals, extracted), nil
}

// Reconcile compares each amount the extractor found with the computed value.
func (av *AmountValidation) Reconcile(number string, totals models.Totals, extracted *ExtractedAmounts) *VerificationResult {
	result := &VerificationResult{Extracted: extracted}

	av.compare(result, "net", totals.BaseAmt, extracted.NetAmt)
	av.compare(result, "vat", totals.VATAmt, extracted.VATAmt)
	av.compare(result, "total", totals.TotalAmt, extracted.TotalAmt)

	if extracted.Number != "" && number != "" && extracted.Number != number {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("document number mismatch: expected %s, read %s", number, extracted.Number))
		result.HasDiscrepancy = true
	}

	// Check that the document itself adds up.
	if extracted.NetAmt != nil && extracted.VATAmt != nil && extracted.TotalAmt != nil {
		sum := extracted.NetAmt.Add(*extracted.VATAmt)
		if diff := sum.Sub(*extracted.TotalAmt).Abs(); diff.GreaterThan(AmountTolerance) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("read amounts do not add up: net %s + vat %s = %s, total %s",
					extracted.NetAmt.StringFixed(2), extracted.VATAmt.StringFixed(2),
					sum.StringFixed(2), extracted.TotalAmt.StringFixed(2)))
			result.HasDiscrepancy = true
		}
	}

	av.log.Info().
		Str("number", number).
		Bool("has_discrepancy", result.HasDiscrepancy).
		Strs("warnings", result.Warnings).
		Msg("Amount verification completed")

	return result
}

func (av *AmountValidation) compare(result *VerificationResult, kind string, computed decimal.Decimal, read *decimal.Decimal) {
	if read == nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s amount not found in document", kind))
		return
	}
	if diff := computed.Sub(*read).Abs(); diff.GreaterThan(AmountTolerance) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s amount discrepancy: computed %s, read %s", kind, computed.StringFixed(2), read.StringFixed(2)))
		result.HasDiscrepancy = true

		av.log.Warn().
			Str("type", kind).
			Str("computed", computed.StringFixed(2)).
			Str("read", read.StringFixed(2)).
			Msg("Amount discrepancy detected")
	}
}
