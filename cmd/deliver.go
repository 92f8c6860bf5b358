package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"invoicer/internal/generator"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver [file]",
	Short: "Upload or mail a document that was generated earlier",
	Long: `Send an existing .pdf or .docx again, for example after a delivery step of
generate --live failed. The sequence counter is not touched.

Uploads are idempotent: a file with the same name already in the target
folder is reused. The register is only written by generate, since it
needs the computed amounts.`,
	Example: `  # Upload to the Drive folder of the ARGENTA template
  invoicer deliver files/invoices/I_2024-8.pdf --template argenta --upload

  # Mail to a customer
  invoicer deliver files/invoices/I_2024-8.pdf --email billing@acme.example`,
	Args: cobra.ExactArgs(1),
	RunE: runDeliver,
}

// DeliverOutput is the JSON written by the deliver command.
type DeliverOutput struct {
	File     string                   `json:"file"`
	Delivery generator.DeliveryResult `json:"delivery"`
	Errors   []string                 `json:"errors,omitempty"`
}

func init() {
	rootCmd.AddCommand(deliverCmd)

	deliverCmd.Flags().String("template", string(models.TemplateNeon), "Template whose Drive folder to use")
	deliverCmd.Flags().Bool("upload", false, "Upload the file to Google Drive")
	deliverCmd.Flags().StringSlice("email", nil, "Mail the file to these addresses")
	deliverCmd.Flags().String("subject", "", "Email subject (default: file name)")
	deliverCmd.Flags().String("body", "", "Email body")
	deliverCmd.Flags().Int("timeout", 120, "Timeout in seconds")
}

func runDeliver(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("deliver")

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	template, _ := cmd.Flags().GetString("template")
	body, _ := cmd.Flags().GetString("body")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	var df deliveryFlags
	df.upload, _ = cmd.Flags().GetBool("upload")
	df.email, _ = cmd.Flags().GetStringSlice("email")
	df.subject, _ = cmd.Flags().GetString("subject")

	if !df.any() {
		return fmt.Errorf("nothing to do: pass --upload and/or --email")
	}

	path := args[0]
	if info, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	} else if !info.Mode().IsRegular() {
		return fmt.Errorf("path is not a regular file: %s", path)
	}

	ctx, cancel := createContext(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	d, err := newDelivery(ctx, cfg, string(models.ParseTemplate(template)), df, log)
	if err != nil {
		return err
	}

	out := DeliverOutput{File: path}
	var errs []error

	if d.Uploader != nil {
		id, err := d.Uploader.Upload(ctx, path, d.FolderID)
		if err != nil {
			errs = append(errs, fmt.Errorf("upload: %w", err))
		} else {
			out.Delivery.RemoteID = id
			log.Info().Str("file_id", id).Msg("Document uploaded")
		}
	}

	if d.Mailer != nil {
		subject := d.Subject
		if subject == "" {
			subject = filepath.Base(path)
		}
		id, err := d.Mailer.Send(ctx, d.MailTo, subject, body, []string{path})
		if err != nil {
			errs = append(errs, fmt.Errorf("mail: %w", err))
		} else {
			out.Delivery.MessageID = id
			log.Info().Str("message_id", id).Strs("to", d.MailTo).Msg("Document mailed")
		}
	}

	for _, err := range errs {
		out.Errors = append(out.Errors, err.Error())
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := writeOutput("", data, log); err != nil {
		return err
	}
	return errors.Join(errs...)
}
