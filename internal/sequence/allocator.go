// Package sequence derives document numbers from the per-company counters
// in the reference store.
package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Counters is the part of the reference store the allocator needs.
type Counters interface {
	LastSequence(companyID, key string) (int, error)
	SetLastSequence(companyID, key string, value int) error
}

// Allocation is a previewed document number. It is only used once Confirm
// has accepted it.
type Allocation struct {
	CreditorID   string              `json:"creditor_id"`
	DocumentType models.DocumentType `json:"document_type"`
	Key          string              `json:"key"`   // last_sequences key
	Field        string              `json:"field"` // invoice_nr or offer_nr
	Last         int                 `json:"last"`
	Number       string              `json:"number"`
}

// Next returns the counter value this allocation moves to.
func (a Allocation) Next() int {
	return a.Last + 1
}

// ErrStaleAllocation is returned when the counter moved since the preview.
var ErrStaleAllocation = errors.New("stale sequence allocation")

// Allocator previews and confirms document numbers.
type Allocator struct {
	counters Counters
	now      func() time.Time
	log      zerolog.Logger
}

// NewAllocator creates an allocator. now supplies the year of the number;
// nil means time.Now.
func NewAllocator(counters Counters, now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{
		counters: counters,
		now:      now,
		log:      logger.WithComponent("sequence"),
	}
}

// Next previews the next number for docType at creditorID. It does not
// change anything, so calling it twice gives the same number.
func (a *Allocator) Next(docType models.DocumentType, creditorID string) (Allocation, error) {
	key := docType.SequenceKey()
	last, err := a.counters.LastSequence(creditorID, key)
	if err != nil {
		return Allocation{}, err
	}

	return Allocation{
		CreditorID:   creditorID,
		DocumentType: docType,
		Key:          key,
		Field:        docType.NumberField(),
		Last:         last,
		Number:       fmt.Sprintf("%d-%d", a.now().Year(), last+1),
	}, nil
}

// Confirm moves the counter to the allocated number in memory. It fails if
// the counter is no longer at the previewed value.
func (a *Allocator) Confirm(alloc Allocation) error {
	current, err := a.counters.LastSequence(alloc.CreditorID, alloc.Key)
	if err != nil {
		return err
	}
	if current != alloc.Last {
		return fmt.Errorf("%w: %s/%s is at %d, allocation expected %d",
			ErrStaleAllocation, alloc.CreditorID, alloc.Key, current, alloc.Last)
	}
	if err := a.counters.SetLastSequence(alloc.CreditorID, alloc.Key, alloc.Next()); err != nil {
		return err
	}

	a.log.Debug().
		Str("creditor", alloc.CreditorID).
		Str("key", alloc.Key).
		Int("value", alloc.Next()).
		Msg("Sequence confirmed")
	return nil
}

// Rollback undoes Confirm when the new value could not be persisted.
func (a *Allocator) Rollback(alloc Allocation) error {
	current, err := a.counters.LastSequence(alloc.CreditorID, alloc.Key)
	if err != nil {
		return err
	}
	if current != alloc.Next() {
		return fmt.Errorf("%w: %s/%s is at %d, cannot roll back to %d",
			ErrStaleAllocation, alloc.CreditorID, alloc.Key, current, alloc.Last)
	}
	return a.counters.SetLastSequence(alloc.CreditorID, alloc.Key, alloc.Last)
}
