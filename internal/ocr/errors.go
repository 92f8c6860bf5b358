package ocr

import (
	"errors"
	"fmt"

	"invoicer/internal/invoice"
)

var (
	// ErrPDFTooLarge means the file is over the 20MB synchronous limit.
	ErrPDFTooLarge = errors.New("PDF larger than 20MB")

	// ErrInvalidPDF is shared with the Document AI engine so callers can
	// test for it regardless of VERIFY_ENGINE.
	ErrInvalidPDF = invoice.ErrInvalidPDF

	ErrOCRFailed     = errors.New("text detection failed")
	ErrTooManyPages  = errors.New("PDF has more than 5 pages")
	ErrEmptyDocument = errors.New("no text detected in document")
)

// OCRError records which step of text detection failed.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("ocr %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ocr %s: %s: %v", e.Op, e.Details, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// WrapOCRError wraps err unless it already carries an OCRError.
func WrapOCRError(op string, err error, details string) error {
	var ocrErr *OCRError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ocrErr):
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}
