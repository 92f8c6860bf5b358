package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoicer/internal/config"
	"invoicer/internal/document"
	"invoicer/internal/drive"
	"invoicer/internal/gauth"
	"invoicer/internal/generator"
	"invoicer/internal/invoice"
	"invoicer/internal/ledger"
	"invoicer/internal/mail"
	"invoicer/internal/ocr"
	"invoicer/internal/sheets"
	"invoicer/internal/store"
)

// deliveryScopes covers every API a delivery may touch, so one stored user
// token serves all of them.
var deliveryScopes = []string{drive.Scope, mail.Scope, sheets.Scope}

func googleCredentials(cfg *config.Config) gauth.Credentials {
	return gauth.Credentials{
		ClientSecretFile:   cfg.GoogleClientSecretFile,
		TokenFile:          cfg.GoogleTokenFile,
		ServiceAccountJSON: cfg.GoogleCredentialsJSON,
		ServiceAccountFile: cfg.GoogleCredentialsFile,
		Subject:            cfg.MailFrom,
	}
}

// newRenderer picks the PDF engine named by PDF_ENGINE. nil means .docx only.
func newRenderer(cfg *config.Config) document.PDFRenderer {
	switch cfg.PDFEngine {
	case "maroto":
		return document.NewMarotoRenderer()
	case "none":
		return nil
	default:
		return document.NewOfficeConverter(cfg.OfficeBinary, cfg.ConvertTimeout)
	}
}

// newGenerator opens the reference store and wires a generator around it.
func newGenerator(cfg *config.Config, verifier generator.Verifier, log zerolog.Logger) (*generator.Generator, error) {
	mode, err := invoice.ParseRoundingMode(cfg.VATRounding)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to open reference store")
		return nil, fmt.Errorf("failed to open reference store %s: %w", cfg.DBPath, err)
	}

	return generator.New(generator.Options{
		Store:      st,
		Calculator: invoice.NewCalculator(mode),
		Exporter:   document.NewExporter(cfg.OutputDir, newRenderer(cfg)),
		Verifier:   verifier,
		LogoPath:   cfg.LogoPath,
	}), nil
}

// newVerifier connects to the engine named by VERIFY_ENGINE. The returned
// close function is always safe to call.
func newVerifier(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*invoice.AmountValidation, func(), error) {
	if cfg.VerifyEngine == "vision" {
		svc, err := ocr.NewVisionService(ctx, ocr.VisionConfig{
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			return nil, func() {}, credentialsError(err, log)
		}
		closeFn := func() {
			if err := svc.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close Vision client")
			}
		}
		return invoice.NewAmountValidation(ocr.NewAmountReader(svc)), closeFn, nil
	}

	dcfg := invoice.DefaultDocumentAIConfig()
	dcfg.ProjectID = cfg.GoogleCloudProject
	dcfg.Location = cfg.GoogleCloudLocation
	dcfg.ProcessorID = cfg.DocumentAIProcessorID
	dcfg.CredentialsJSON = cfg.GoogleCredentialsJSON
	dcfg.CredentialsFile = cfg.GoogleCredentialsFile

	extractor, err := invoice.NewDocumentAIExtractor(ctx, dcfg)
	if err != nil {
		return nil, func() {}, credentialsError(err, log)
	}
	closeFn := func() {
		if err := extractor.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Document AI client")
		}
	}
	return invoice.NewAmountValidation(extractor), closeFn, nil
}

type deliveryFlags struct {
	upload   bool
	email    []string
	mail     bool
	register bool
	subject  string
}

func (f deliveryFlags) any() bool {
	return f.upload || f.mail || len(f.email) > 0 || f.register
}

// newDelivery builds the delivery targets the flags ask for.
func newDelivery(ctx context.Context, cfg *config.Config, template string, f deliveryFlags, log zerolog.Logger) (generator.Delivery, error) {
	d := generator.Delivery{MailTo: f.email, Subject: f.subject}

	needsGoogle := f.upload || f.mail || len(f.email) > 0 || (f.register && cfg.RegisterXLSXPath == "")
	var opts []option.ClientOption
	if needsGoogle {
		client, err := gauth.HTTPClient(ctx, googleCredentials(cfg), deliveryScopes...)
		if err != nil {
			return d, credentialsError(err, log)
		}
		opts = append(opts, option.WithHTTPClient(client))
	}

	if f.upload {
		folder := cfg.DriveFolderFor(template)
		if folder == "" {
			return d, fmt.Errorf("no Drive folder configured for template %s. Set DRIVE_FOLDER_ID or DRIVE_FOLDER_ID_%s",
				template, strings.ToUpper(template))
		}
		svc, err := drive.NewService(ctx, opts...)
		if err != nil {
			return d, err
		}
		d.Uploader, d.FolderID = svc, folder
	}

	if f.mail || len(f.email) > 0 {
		if cfg.MailFrom == "" {
			return d, fmt.Errorf("MAIL_FROM is required to send email")
		}
		svc, err := mail.NewService(ctx, cfg.MailFrom, opts...)
		if err != nil {
			return d, err
		}
		d.Mailer = svc
	}

	if f.register {
		switch {
		case cfg.RegisterXLSXPath != "":
			d.Register = ledger.NewWorkbook(cfg.RegisterXLSXPath, cfg.RegisterSheetName)
		case cfg.RegisterSheetURL != "":
			svc, err := sheets.NewSheetsService(ctx, cfg.RegisterSheetURL, cfg.RegisterSheetName, opts...)
			if err != nil {
				return d, err
			}
			d.Register = svc
		default:
			return d, fmt.Errorf("no register configured. Set REGISTER_XLSX or REGISTER_SHEET_URL")
		}
	}
	return d, nil
}

// credentialsError turns a missing-credentials failure into setup instructions.
func credentialsError(err error, log zerolog.Logger) error {
	if !errors.Is(err, invoice.ErrMissingCredentials) {
		log.Error().Err(err).Msg("Failed to create Google client")
		return err
	}
	log.Error().Err(err).Msg("Google credentials not configured")
	return fmt.Errorf("missing Google credentials. Please set one of:\n" +
		"  GOOGLE_CLIENT_SECRET_FILE and GOOGLE_TOKEN_FILE (then run: invoicer auth)\n" +
		"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n" +
		"  GOOGLE_CREDENTIALS='<json-credentials>'\n" +
		"Original error: %w", err)
}
