package invoice

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"invoicer/internal/logger"
)

const (
	// MaxDocumentSizeBytes is the maximum document size for processing (20MB)
	MaxDocumentSizeBytes = 20 * 1024 * 1024
)

// DocumentAIExtractor implements AmountExtractor using Google Document AI.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates an extractor from explicit configuration.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" {
		return nil, WrapGenerationError(op, ErrVerification, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapGenerationError(op, ErrVerification, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "eu"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption

	// Set regional endpoint if not us
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	switch {
	case config.CredentialsJSON != "":
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	case config.CredentialsFile != "":
		clientOptions = append(clientOptions, option.WithCredentialsFile(config.CredentialsFile))
	default:
		return nil, WrapGenerationError(op, ErrMissingCredentials, "set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapGenerationError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

// Extract sends the PDF to the processor and reads the amount entities.
func (p *DocumentAIExtractor) Extract(ctx context.Context, pdfData io.Reader) (*ExtractedAmounts, error) {
	const op = "Extract"

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, WrapGenerationError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxDocumentSizeBytes {
		return nil, WrapGenerationError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapGenerationError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, p.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapGenerationError(op, ErrVerification, "no document in response")
	}

	amounts := extractAmounts(resp.Document, p.log)
	amounts.ProcessingTime = time.Since(start)
	return amounts, nil
}

func (p *DocumentAIExtractor) processorName() string {
	if p.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
}

func (p *DocumentAIExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapGenerationError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapGenerationError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "context deadline exceeded"):
		return WrapGenerationError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return WrapGenerationError(op, ErrVerification, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (p *DocumentAIExtractor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// extractAmounts maps Document AI entities onto ExtractedAmounts.
func extractAmounts(doc *documentaipb.Document, log zerolog.Logger) *ExtractedAmounts {
	out := &ExtractedAmounts{Confidence: make(map[string]float32)}

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)
		out.Confidence[entity.Type] = entity.Confidence

		switch entity.Type {
		case "invoice_id", "invoice_number":
			out.Number = value
		case "currency":
			out.Currency = value
		case "net_amount", "subtotal_amount":
			out.NetAmt = moneyEntity(entity, log)
		case "total_tax_amount", "vat_amount":
			out.VATAmt = moneyEntity(entity, log)
		case "total_amount", "gross_amount":
			out.TotalAmt = moneyEntity(entity, log)
		}
	}

	log.Debug().
		Str("invoice_number", out.Number).
		Interface("net", out.NetAmt).
		Interface("vat", out.VATAmt).
		Interface("total", out.TotalAmt).
		Msg("Document AI extraction completed")

	return out
}

func moneyEntity(entity *documentaipb.Document_Entity, log zerolog.Logger) *decimal.Decimal {
	if nv := entity.GetNormalizedValue(); nv != nil {
		if m := nv.GetMoneyValue(); m != nil {
			d := decimal.NewFromInt(m.Units).Add(decimal.New(int64(m.Nanos), -9))
			return &d
		}
	}
	d, err := ParseAmount(entity.MentionText)
	if err != nil {
		log.Warn().Err(err).Str("entity_type", entity.Type).Msg("Failed to read amount")
		return nil
	}
	return &d
}

// ParseAmount reads an amount as printed on a document. Both "1.234,56"
// and "1,234.56" are understood; currency symbols are dropped.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	for _, sym := range []string{" ", " ", "€", "$", "EUR", "USD"} {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount value")
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", s, cleaned)
	}
	return d, nil
}
