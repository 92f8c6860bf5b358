package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

var nextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Show the next document number without allocating it",
	Long: `Print the number the next generate --live run would use for a creditor.
The reference store is read but never written.`,
	Example: `  # Next invoice number of the default creditor
  invoicer next-number

  # Next offer number of a specific creditor
  invoicer next-number --type offer --creditor self`,
	Args: cobra.NoArgs,
	RunE: runNextNumber,
}

func init() {
	rootCmd.AddCommand(nextNumberCmd)

	nextNumberCmd.Flags().String("type", "invoice", "Document type (invoice or offer)")
	nextNumberCmd.Flags().String("creditor", "", "Creditor company id (default: the store's default creditor)")
}

func runNextNumber(cmd *cobra.Command, _ []string) error {
	log := logger.WithComponent("next-number")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	typeName, _ := cmd.Flags().GetString("type")
	creditor, _ := cmd.Flags().GetString("creditor")

	docType, ok := models.ParseDocumentType(typeName)
	if !ok {
		return fmt.Errorf("--type must be invoice or offer (got %q)", typeName)
	}

	gen, err := newGenerator(cfg, nil, log)
	if err != nil {
		return err
	}
	alloc, err := gen.NextNumber(docType, creditor)
	if err != nil {
		return handleGenerateError(err, log)
	}

	log.Debug().
		Str("creditor", alloc.CreditorID).
		Int("last", alloc.Last).
		Str("number", alloc.Number).
		Msg("Next number computed")
	fmt.Fprintln(cmd.OutOrStdout(), alloc.Number)
	return nil
}
