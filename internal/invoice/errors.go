package invoice

import (
	"errors"
	"fmt"
)

// Generation error taxonomy
var (
	// ErrMissingField is returned when a billing request lacks a required field.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a field is present but unusable
	// (negative amount, bad date, ambiguous debtor, duplicate item key).
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidTemplate is returned by the calculator for an unknown template.
	ErrInvalidTemplate = errors.New("invalid invoice template")

	// ErrReferenceLookup is returned when a debtor, creditor, currency,
	// policy or default cannot be found in the reference store.
	ErrReferenceLookup = errors.New("reference lookup failed")

	// ErrExport is returned when writing the document or converting it to PDF fails.
	ErrExport = errors.New("document export failed")

	// ErrConfirmation is returned when the document exists but the sequence
	// increment could not be persisted. The run stays pending.
	ErrConfirmation = errors.New("sequence confirmation failed")

	// ErrDelivery is returned when an upload, mail or register step fails.
	ErrDelivery = errors.New("delivery failed")

	// ErrVerification is returned when the rendered PDF could not be read back.
	ErrVerification = errors.New("verification failed")

	// ErrMissingCredentials is returned when no Google credentials are configured.
	ErrMissingCredentials = errors.New("missing Google credentials")

	// ErrInvalidPDF is returned when a file handed to verification is not a PDF.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrDocumentTooLarge is returned when the PDF exceeds Document AI limits.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")
)

// ValidationError names the request field that failed.
type ValidationError struct {
	Field   string
	Err     error // ErrMissingField or ErrInvalidField
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

// Unwrap returns the sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Err: ErrMissingField}
}

func invalidField(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Err: ErrInvalidField, Message: fmt.Sprintf(format, args...)}
}

// GenerationError wraps a failure with the pipeline stage it happened in.
type GenerationError struct {
	// Op is the operation that failed (e.g., "Export", "Confirm").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("generate: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("generate: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is matches against the underlying error chain.
func (e *GenerationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapGenerationError wraps an error as a GenerationError if it isn't already one.
func WrapGenerationError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err // Already wrapped
	}

	return &GenerationError{Op: op, Err: err, Details: details}
}

// LookupError reports which reference could not be resolved.
func LookupError(kind, id string) error {
	return fmt.Errorf("%w: %s %q not found", ErrReferenceLookup, kind, id)
}
