package generator

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"invoicer/internal/document"
	"invoicer/internal/invoice"
	"invoicer/internal/sequence"
	"invoicer/pkg/models"
)

// State is the position of a run in the pipeline.
type State string

const (
	StateValidated      State = "validated"
	StateComputed       State = "computed"
	StateAssembled      State = "assembled"
	StateExported       State = "exported"
	StateConfirmed      State = "confirmed"
	StateTestRunSkipped State = "test_run_skipped"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateTestRunSkipped || s == StateFailed
}

// ErrInvalidState is returned when a transition is not allowed from the
// current state.
var ErrInvalidState = errors.New("invalid run state")

// Run is one generation. It is not safe for concurrent use.
type Run struct {
	ID           string
	State        State
	DocumentType models.DocumentType
	Template     models.Template

	Allocation   sequence.Allocation
	Invoice      *models.ComputedInvoice
	Data         *document.Data
	Output       *document.Output
	Verification *invoice.VerificationResult
	Delivery     *DeliveryResult

	Warnings []string
	Err      error

	gen *Generator
	log zerolog.Logger
}

func (r *Run) transition(to State) {
	r.log.Debug().Str("from", string(r.State)).Str("to", string(to)).Msg("Run state changed")
	r.State = to
}

func (r *Run) fail(op string, err error) (*Run, error) {
	err = invoice.WrapGenerationError(op, err, "")
	r.Err = err
	r.transition(StateFailed)
	r.log.Error().Err(err).Msg("Generation failed")
	return r, err
}

func (r *Run) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	r.log.Warn().Msg(msg)
}

// PendingConfirmation reports whether the document exists but its number
// has not been committed to the store.
func (r *Run) PendingConfirmation() bool {
	return r.State == StateExported
}

// Confirm commits the allocated number to the reference store and saves
// it. If saving fails the in-memory counter is restored, the run stays
// Exported and Confirm may be called again. Confirming a confirmed run is
// a no-op.
func (r *Run) Confirm() error {
	const op = "Confirm"

	switch r.State {
	case StateConfirmed:
		return nil
	case StateExported:
	default:
		return fmt.Errorf("%s: %w: run is %s", op, ErrInvalidState, r.State)
	}

	if err := r.gen.alloc.Confirm(r.Allocation); err != nil {
		return &invoice.GenerationError{Op: op, Err: fmt.Errorf("%w: %w", invoice.ErrConfirmation, err)}
	}

	if err := r.gen.store.Save(); err != nil {
		if rbErr := r.gen.alloc.Rollback(r.Allocation); rbErr != nil {
			r.log.Error().Err(rbErr).Msg("Failed to roll back sequence")
		}
		r.log.Error().Err(err).Str("number", r.Allocation.Number).Msg("Sequence not persisted")
		return &invoice.GenerationError{
			Op:      op,
			Err:     fmt.Errorf("%w: %w", invoice.ErrConfirmation, err),
			Details: fmt.Sprintf("document %s exists but %s was not saved", r.Allocation.Number, r.Allocation.Key),
		}
	}

	r.transition(StateConfirmed)
	r.log.Info().
		Str("number", r.Allocation.Number).
		Str("creditor", r.Allocation.CreditorID).
		Msg("Sequence confirmed")
	return nil
}

// SkipConfirmation ends a test run: the document stays on disk and the
// store is left untouched.
func (r *Run) SkipConfirmation() error {
	if r.State != StateExported {
		return fmt.Errorf("SkipConfirmation: %w: run is %s", ErrInvalidState, r.State)
	}
	r.transition(StateTestRunSkipped)
	r.log.Info().Str("number", r.Allocation.Number).Msg("Test run, sequence not confirmed")
	return nil
}

// Summary is the machine-readable outcome of a run.
type Summary struct {
	RunID        string              `json:"run_id"`
	State        State               `json:"state"`
	DocumentType models.DocumentType `json:"document_type"`
	Template     models.Template     `json:"template"`
	Number       string              `json:"number,omitempty"`
	Debtor       string              `json:"debtor,omitempty"`
	Totals       *models.Totals      `json:"totals,omitempty"`
	Output       *document.Output    `json:"output,omitempty"`
	Delivery     *DeliveryResult     `json:"delivery,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Summary returns the run outcome for printing.
func (r *Run) Summary() Summary {
	s := Summary{
		RunID:        r.ID,
		State:        r.State,
		DocumentType: r.DocumentType,
		Template:     r.Template,
		Number:       r.Allocation.Number,
		Output:       r.Output,
		Delivery:     r.Delivery,
		Warnings:     r.Warnings,
	}
	if r.Invoice != nil {
		s.Totals = &r.Invoice.Totals
	}
	if r.Data != nil && r.Data.Debtor != nil {
		s.Debtor = r.Data.Debtor.Name
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}
