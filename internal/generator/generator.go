// Package generator runs the generation pipeline: merge request and
// reference data, compute, allocate a number, assemble, export, and then
// let the caller confirm the number or skip confirmation for a test run.
package generator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoicer/internal/document"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/sequence"
	"invoicer/pkg/models"
)

// ReferenceStore is the part of the reference store the generator uses.
type ReferenceStore interface {
	sequence.Counters
	Defaults() models.Defaults
	Company(id string) (*models.Company, error)
	Currency(id string) (*models.Currency, error)
	Policy(id string) (string, error)
	Save() error
}

// Verifier reads amounts back from a rendered PDF.
type Verifier interface {
	Verify(ctx context.Context, pdfPath, number string, totals models.Totals) (*invoice.VerificationResult, error)
}

// Options configures a Generator. Store, Calculator and Exporter are required.
type Options struct {
	Store      ReferenceStore
	Calculator *invoice.Calculator
	Exporter   *document.Exporter
	Assembler  *document.Assembler // nil: default layout
	Verifier   Verifier            // nil: no verification
	LogoPath   string
	Now        func() time.Time // nil: time.Now
}

// Generator produces documents from validated requests.
type Generator struct {
	store     ReferenceStore
	calc      *invoice.Calculator
	alloc     *sequence.Allocator
	assembler *document.Assembler
	exporter  *document.Exporter
	verifier  Verifier
	logoPath  string
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a generator.
func New(opts Options) *Generator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	asm := opts.Assembler
	if asm == nil {
		asm = document.NewAssembler()
	}
	return &Generator{
		store:     opts.Store,
		calc:      opts.Calculator,
		alloc:     sequence.NewAllocator(opts.Store, now),
		assembler: asm,
		exporter:  opts.Exporter,
		verifier:  opts.Verifier,
		logoPath:  opts.LogoPath,
		now:       now,
		log:       logger.WithComponent("generator"),
	}
}

// Compute merges defaults and computes the amounts without allocating a
// number or writing anything.
func (g *Generator) Compute(req *invoice.Request) (*models.ComputedInvoice, error) {
	const op = "Compute"

	m, err := g.merge(req)
	if err != nil {
		return nil, invoice.WrapGenerationError(op, err, "")
	}
	inv, err := g.calc.Compute(req.EffectiveTemplate(), m.input)
	if err != nil {
		return nil, invoice.WrapGenerationError(op, err, "")
	}
	return inv, nil
}

// NextNumber previews the number the next document of docType would get.
// An empty creditorID uses the default creditor.
func (g *Generator) NextNumber(docType models.DocumentType, creditorID string) (sequence.Allocation, error) {
	if creditorID == "" {
		creditorID = g.store.Defaults().CreditorID
	}
	return g.alloc.Next(docType, creditorID)
}

// Generate runs the pipeline up to Exported. The returned run must then be
// confirmed or have its confirmation skipped. On failure the run is
// returned in state Failed together with the error, and no output file
// or store change is left behind.
func (g *Generator) Generate(ctx context.Context, req *invoice.Request) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		State:        StateValidated,
		DocumentType: req.EffectiveDocumentType(),
		Template:     req.EffectiveTemplate(),
		gen:          g,
	}
	run.log = logger.WithRunID("generator", run.ID)

	for _, f := range req.IgnoredFields {
		run.warn("ignored caller-supplied %s; amounts are always computed", f)
	}

	m, err := g.merge(req)
	if err != nil {
		return run.fail("Merge", err)
	}

	inv, err := g.calc.Compute(run.Template, m.input)
	if err != nil {
		return run.fail("Compute", err)
	}
	run.Invoice = inv
	run.transition(StateComputed)

	alloc, err := g.alloc.Next(run.DocumentType, m.creditorID)
	if err != nil {
		return run.fail("Allocate", err)
	}
	run.Allocation = alloc

	m.data.Number = alloc.Number
	m.data.Invoice = inv
	run.Data = m.data
	tree := g.assembler.Assemble(m.data)
	run.transition(StateAssembled)

	out, err := g.exporter.Export(ctx, tree, run.DocumentType, alloc.Number)
	if err != nil {
		return run.fail("Export", err)
	}
	run.Output = out
	run.transition(StateExported)

	if g.verifier != nil && out.PDFPath != "" {
		res, err := g.verifier.Verify(ctx, out.PDFPath, alloc.Number, inv.Totals)
		if err != nil {
			run.warn("verification skipped: %v", err)
		} else {
			run.Verification = res
			run.Warnings = append(run.Warnings, res.Warnings...)
		}
	}

	run.log.Info().
		Str("number", alloc.Number).
		Str("type", string(run.DocumentType)).
		Str("total", inv.Totals.TotalAmt.StringFixed(2)).
		Msg("Document generated")
	return run, nil
}
