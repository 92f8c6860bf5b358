package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [pdf-file]",
	Short: "Check a rendered PDF against the amounts of its request",
	Long: `Read a generated PDF with the Google Document AI invoice parser, or with
Cloud Vision OCR when VERIFY_ENGINE=vision, and compare the net, VAT and
total amounts it finds with the amounts computed from the billing request. Differences are reported as warnings; the command fails
only when the document cannot be read.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - Processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - Your Document AI invoice processor ID
  (the last three are not needed for VERIFY_ENGINE=vision)`,
	Example: `  # Compare I_2024-8.pdf with the request it came from
  invoicer verify files/invoices/I_2024-8.pdf --request request.json --number 2024-8`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

// VerifyOutput is the JSON written by the verify command.
type VerifyOutput struct {
	File           string             `json:"file"`
	Number         string             `json:"number,omitempty"`
	Computed       models.Totals      `json:"computed"`
	Extracted      *ExtractedOutput   `json:"extracted,omitempty"`
	Confidence     map[string]float32 `json:"confidence,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	HasDiscrepancy bool               `json:"has_discrepancy"`
	Duration       string             `json:"processing_duration"`
}

// ExtractedOutput holds the amounts Document AI read; absent amounts are null.
type ExtractedOutput struct {
	Number   string           `json:"number,omitempty"`
	Currency string           `json:"currency,omitempty"`
	NetAmt   *decimal.Decimal `json:"net_amt"`
	VATAmt   *decimal.Decimal `json:"vat_amt"`
	TotalAmt *decimal.Decimal `json:"total_amt"`
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	verifyCmd.Flags().String("request", "", "Billing request the PDF was generated from (required)")
	verifyCmd.Flags().String("number", "", "Expected document number")
	verifyCmd.Flags().Bool("confidence", false, "Include confidence scores in output")
	verifyCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
	_ = verifyCmd.MarkFlagRequired("request")
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("verify")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	requestPath, _ := cmd.Flags().GetString("request")
	number, _ := cmd.Flags().GetString("number")
	includeConfidence, _ := cmd.Flags().GetBool("confidence")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]
	if err := validatePDF(pdfPath, log); err != nil {
		return err
	}

	req, err := invoice.LoadRequest(resolveRequestPath(cfg, requestPath), invoice.Overrides{})
	if err != nil {
		return handleGenerateError(err, log)
	}
	gen, err := newGenerator(cfg, nil, log)
	if err != nil {
		return err
	}
	computed, err := gen.Compute(req)
	if err != nil {
		return handleGenerateError(err, log)
	}

	ctx, cancel := createContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	verifier, closeFn, err := newVerifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	result, err := verifier.Verify(ctx, pdfPath, number, computed.Totals)
	if err != nil {
		log.Error().Err(err).Str("file", pdfPath).Msg("Verification failed")
		return fmt.Errorf("could not read %s with %s: %w", pdfPath, cfg.VerifyEngine, err)
	}

	out := VerifyOutput{
		File:           pdfPath,
		Number:         number,
		Computed:       computed.Totals,
		Warnings:       result.Warnings,
		HasDiscrepancy: result.HasDiscrepancy,
		Duration:       time.Since(start).Round(time.Millisecond).String(),
	}
	if x := result.Extracted; x != nil {
		out.Extracted = &ExtractedOutput{
			Number:   x.Number,
			Currency: x.Currency,
			NetAmt:   x.NetAmt,
			VATAmt:   x.VATAmt,
			TotalAmt: x.TotalAmt,
		}
		if includeConfidence {
			out.Confidence = x.Confidence
		}
	}

	log.Info().
		Str("file", pdfPath).
		Bool("discrepancy", result.HasDiscrepancy).
		Int("warnings", len(result.Warnings)).
		Msg("Verification completed")

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return writeOutput(outputPath, data, log)
}

// validatePDF checks that path is a readable, non-empty PDF within the
// Document AI size limit.
func validatePDF(path string, log zerolog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("file", path).Msg("PDF file not found")
			return fmt.Errorf("PDF file not found: %s", path)
		}
		return fmt.Errorf("error accessing PDF file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		log.Warn().Str("file", path).Msg("File does not have .pdf extension")
	}
	if info.Size() == 0 {
		return fmt.Errorf("PDF file is empty: %s", path)
	}
	if info.Size() > invoice.MaxDocumentSizeBytes {
		return fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			info.Size(), invoice.MaxDocumentSizeBytes)
	}
	return nil
}
