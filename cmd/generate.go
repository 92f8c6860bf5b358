package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicer/internal/generator"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

var generateCmd = &cobra.Command{
	Use:   "generate [request-file]",
	Short: "Generate an invoice or offer from a billing request",
	Long: `Read a billing request (JSON or YAML), compute the amounts, allocate the
next document number and write the document as .docx and PDF to PATH_OUT.

By default this is a test run: the files are written but the sequence
counter in PATH_DB is left untouched, so the same number is produced
again next time. Pass --live to commit the number. Delivery (Drive upload,
email, register) only happens on live runs.

A bare file name is looked up in PATH_CONFIG when it is not found in the
current directory.

Environment variables:
  PATH_DB     - reference store (required)
  PATH_OUT    - output directory (default files/invoices)
  PDF_ENGINE  - office, maroto or none (default office)
  LOGO_PATH   - PNG or JPEG logo for the document header`,
	Example: `  # Test run, prints a JSON summary
  invoicer generate request.json

  # Commit the number and upload the PDF to Drive
  invoicer generate request.yaml --live --upload

  # Offer with the ARGENTA layout, mailed to the debtor and registered
  invoicer generate offer.json --type offer --template argenta --live --mail --register`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("output", "o", "", "Write the JSON summary to a file (default: stdout)")
	generateCmd.Flags().String("type", "", "Document type, overrides the request (invoice or offer)")
	generateCmd.Flags().String("template", "", "Template, overrides the request (NEON or ARGENTA)")
	generateCmd.Flags().Bool("live", false, "Commit the document number (default is a test run)")
	generateCmd.Flags().Bool("verify", false, "Read the PDF back (VERIFY_ENGINE) and compare amounts")
	generateCmd.Flags().Bool("upload", false, "Upload the document to Google Drive (live runs only)")
	generateCmd.Flags().Bool("mail", false, "Mail the document to the debtor (live runs only)")
	generateCmd.Flags().StringSlice("email", nil, "Mail the document to these addresses instead of the debtor")
	generateCmd.Flags().String("subject", "", "Email subject (default: document title)")
	generateCmd.Flags().Bool("register", false, "Record the document in the register (live runs only)")
	generateCmd.Flags().Int("timeout", 300, "Timeout in seconds")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("generate")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	docType, _ := cmd.Flags().GetString("type")
	template, _ := cmd.Flags().GetString("template")
	live, _ := cmd.Flags().GetBool("live")
	verify, _ := cmd.Flags().GetBool("verify")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	var df deliveryFlags
	df.upload, _ = cmd.Flags().GetBool("upload")
	df.mail, _ = cmd.Flags().GetBool("mail")
	df.email, _ = cmd.Flags().GetStringSlice("email")
	df.subject, _ = cmd.Flags().GetString("subject")
	df.register, _ = cmd.Flags().GetBool("register")

	ov, err := overrides(docType, template)
	if err != nil {
		return err
	}

	path := resolveRequestPath(cfg, args[0])
	log.Info().
		Str("file", path).
		Bool("live", live).
		Bool("verify", verify).
		Msg("Starting document generation")

	req, err := invoice.LoadRequest(path, ov)
	if err != nil {
		return handleGenerateError(err, log)
	}

	ctx, cancel := createContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	var verifier generator.Verifier
	if verify {
		v, closeFn, err := newVerifier(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeFn()
		verifier = v
	}

	gen, err := newGenerator(cfg, verifier, log)
	if err != nil {
		return err
	}

	run, err := gen.Generate(ctx, req)
	if err != nil {
		return handleGenerateError(err, log)
	}

	if !live {
		if df.any() {
			log.Warn().Msg("Delivery flags are ignored on test runs, pass --live")
		}
		if err := run.SkipConfirmation(); err != nil {
			return err
		}
		return outputSummary(run, outputPath, log)
	}

	if err := run.Confirm(); err != nil {
		_ = outputSummary(run, outputPath, log)
		return handleGenerateError(err, log)
	}

	var deliverErr error
	if df.any() {
		d, err := newDelivery(ctx, cfg, string(run.Template), df, log)
		if err != nil {
			deliverErr = err
		} else {
			_, deliverErr = run.Deliver(ctx, d)
		}
	}

	if err := outputSummary(run, outputPath, log); err != nil {
		return err
	}
	if deliverErr != nil {
		return fmt.Errorf("document %s was confirmed but not fully delivered: %w", run.Allocation.Number, deliverErr)
	}
	return nil
}

func overrides(docType, template string) (invoice.Overrides, error) {
	var ov invoice.Overrides
	if docType != "" {
		t, ok := models.ParseDocumentType(docType)
		if !ok {
			return ov, fmt.Errorf("--type must be invoice or offer (got %q)", docType)
		}
		ov.DocumentType = t
	}
	if template != "" {
		ov.Template = models.ParseTemplate(template)
	}
	return ov, nil
}

func outputSummary(run *generator.Run, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(run.Summary(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return writeOutput(outputPath, data, log)
}

// handleGenerateError provides user-friendly messages for generation failures
func handleGenerateError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Document generation failed")

	var verr *invoice.ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Errorf("invalid request: %w", err)
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("request file not found: %w", err)
	case errors.Is(err, invoice.ErrInvalidTemplate):
		return fmt.Errorf("unknown template. Use NEON or ARGENTA: %w", err)
	case errors.Is(err, invoice.ErrReferenceLookup):
		return fmt.Errorf("reference data missing from %s: %w", appConfig.DBPath, err)
	case errors.Is(err, invoice.ErrExport):
		return fmt.Errorf("could not write the document. Check PATH_OUT and PDF_ENGINE: %w", err)
	case errors.Is(err, invoice.ErrConfirmation):
		return fmt.Errorf("the document was written but its number was not saved; rerun with --live to retry: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("generation timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("generation was canceled")
	default:
		return fmt.Errorf("generation failed: %w", err)
	}
}
