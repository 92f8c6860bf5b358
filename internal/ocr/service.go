// Package ocr reads the text of rendered documents with the Google Cloud
// Vision API and recovers the printed totals from it.
//
// It is the alternative verification engine (VERIFY_ENGINE=vision) for
// setups without a Document AI invoice processor. AmountReader adapts it to
// invoice.AmountExtractor.
//
// Cloud Vision API limitations:
//   - Maximum file size: 20MB for synchronous processing
//   - Maximum pages: 5 pages for synchronous processing
package ocr

import (
	"context"
	"io"
	"time"
)

// TextExtractor extracts the text of a PDF.
type TextExtractor interface {
	ProcessPDF(ctx context.Context, pdfData io.Reader) (*Result, error)
}

// Result contains the results of OCR processing with metadata.
type Result struct {
	// Text is the text of all pages in reading order.
	Text string `json:"text"`

	PageCount int `json:"page_count"`

	// Confidence is the average confidence over the detected text (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	LanguageCodes      []string      `json:"language_codes,omitempty"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}
