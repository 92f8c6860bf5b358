package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoicer/internal/logger"
)

// PDFRenderer produces the PDF companion of a written .docx file.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, tree *Tree, docxPath, pdfPath string) error
}

// OfficeConverter converts .docx to PDF with a headless office suite
// (LibreOffice or compatible).
type OfficeConverter struct {
	Binary  string
	Timeout time.Duration
	log     zerolog.Logger
}

// NewOfficeConverter creates a converter for the given binary.
func NewOfficeConverter(binary string, timeout time.Duration) *OfficeConverter {
	if binary == "" {
		binary = "libreoffice"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OfficeConverter{
		Binary:  binary,
		Timeout: timeout,
		log:     logger.WithComponent("office-converter"),
	}
}

// RenderPDF runs the converter on docxPath. The converter names its output
// after the input, so pdfPath must sit next to docxPath with the same base name.
func (c *OfficeConverter) RenderPDF(ctx context.Context, _ *Tree, docxPath, pdfPath string) error {
	outDir := filepath.Dir(pdfPath)
	want := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))+".pdf")
	if filepath.Clean(want) != filepath.Clean(pdfPath) {
		return fmt.Errorf("converter writes %s, not %s", want, pdfPath)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Binary, "--headless", "--convert-to", "pdf", "--outdir", outDir, docxPath)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out after %s: %w", c.Binary, c.Timeout, ctx.Err())
		}
		return fmt.Errorf("%s failed: %w: %s", c.Binary, err, strings.TrimSpace(output.String()))
	}

	// Some versions exit 0 without writing anything when the profile is locked.
	if _, err := os.Stat(pdfPath); err != nil {
		return fmt.Errorf("%s produced no PDF: %s", c.Binary, strings.TrimSpace(output.String()))
	}

	c.log.Debug().
		Str("docx", docxPath).
		Str("pdf", pdfPath).
		Dur("took", time.Since(start)).
		Msg("Converted document to PDF")
	return nil
}
