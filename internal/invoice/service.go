// Package invoice holds the billing domain: request parsing and validation,
// amount calculation, and read-back verification of rendered documents.
//
// Amounts are shopspring/decimal values throughout. VAT is rounded per line
// to cents; totals are plain sums of the rounded lines.
//
// Verification (optional) sends the rendered PDF to a Google Document AI
// invoice processor and compares the amounts it reads with the computed ones.
// It needs:
//   - GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
//   - GOOGLE_CLOUD_PROJECT
//   - GOOGLE_CLOUD_LOCATION (default "eu")
//   - DOCUMENT_AI_PROCESSOR_ID
//
// Document AI limits:
//   - Maximum file size: 20MB for synchronous processing
//   - Processing time: typically 5-15 seconds per document
package invoice

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// AmountExtractor reads invoice amounts back from a rendered PDF.
type AmountExtractor interface {
	// Extract returns what the processor found. Amounts it could not find
	// are nil.
	Extract(ctx context.Context, pdfData io.Reader) (*ExtractedAmounts, error)
}

// DocumentAIConfig holds configuration for Google Document AI processing.
type DocumentAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	// Should match where your Document AI processor is created.
	Location string

	// ProcessorID is the Document AI processor ID.
	ProcessorID string

	// ProcessorVersion specifies a particular processor version.
	// If empty, uses the default version.
	ProcessorVersion string

	// CredentialsJSON and CredentialsFile are tried in that order.
	CredentialsJSON string
	CredentialsFile string

	// Timeout is the maximum time to wait for processing.
	// Default: 60 seconds.
	Timeout time.Duration
}

// DefaultDocumentAIConfig returns a DocumentAIConfig with sensible defaults.
func DefaultDocumentAIConfig() DocumentAIConfig {
	return DocumentAIConfig{
		Location: "eu",
		Timeout:  60 * time.Second,
	}
}

// ExtractedAmounts is what Document AI read from a document.
type ExtractedAmounts struct {
	Number   string
	Currency string
	NetAmt   *decimal.Decimal
	VATAmt   *decimal.Decimal
	TotalAmt *decimal.Decimal

	// Confidence is keyed by Document AI entity type.
	Confidence map[string]float32

	ProcessingTime time.Duration
}

// VerificationResult is the outcome of comparing computed and extracted amounts.
type VerificationResult struct {
	Extracted *ExtractedAmounts `json:"-"`

	Warnings       []string `json:"warnings,omitempty"`
	HasDiscrepancy bool     `json:"has_discrepancy"`
}
