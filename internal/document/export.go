package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Output names the files an export produced.
type Output struct {
	DocxPath string `json:"docx"`
	PDFPath  string `json:"pdf,omitempty"`
}

// Exporter writes a tree to {prefix}_{number}.docx and its PDF companion.
type Exporter struct {
	outDir string
	docx   *DocxWriter
	pdf    PDFRenderer // nil: no PDF
	log    zerolog.Logger
}

// NewExporter creates an exporter writing into outDir. pdf may be nil.
func NewExporter(outDir string, pdf PDFRenderer) *Exporter {
	return &Exporter{
		outDir: outDir,
		docx:   NewDocxWriter(),
		pdf:    pdf,
		log:    logger.WithComponent("exporter"),
	}
}

// FileBase returns the output name without extension, e.g. I_2024-8.
func FileBase(docType models.DocumentType, number string) string {
	return docType.FilePrefix() + "_" + number
}

// Export writes the files. On failure nothing it started writing is left
// behind and the error wraps invoice.ErrExport.
func (e *Exporter) Export(ctx context.Context, tree *Tree, docType models.DocumentType, number string) (*Output, error) {
	const op = "document.Export"

	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, invoice.ErrExport, err)
	}

	base := filepath.Join(e.outDir, FileBase(docType, number))
	out := &Output{DocxPath: base + ".docx"}

	if err := e.docx.WriteFile(tree, out.DocxPath); err != nil {
		removeAll(out.DocxPath)
		return nil, fmt.Errorf("%s: %w: writing %s: %v", op, invoice.ErrExport, out.DocxPath, err)
	}

	if e.pdf != nil {
		out.PDFPath = base + ".pdf"
		if err := e.pdf.RenderPDF(ctx, tree, out.DocxPath, out.PDFPath); err != nil {
			removeAll(out.DocxPath, out.PDFPath)
			return nil, fmt.Errorf("%s: %w: rendering %s: %v", op, invoice.ErrExport, out.PDFPath, err)
		}
	}

	e.log.Info().
		Str("docx", out.DocxPath).
		Str("pdf", out.PDFPath).
		Msg("Document exported")
	return out, nil
}

func removeAll(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log := logger.WithComponent("exporter")
			log.Warn().Err(err).Str("path", p).Msg("Failed to remove partial output")
		}
	}
}
