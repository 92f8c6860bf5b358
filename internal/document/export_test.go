package document

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

type failingRenderer struct{ partial bool }

func (f failingRenderer) RenderPDF(_ context.Context, _ *Tree, _, pdfPath string) error {
	if f.partial {
		_ = os.WriteFile(pdfPath, []byte("%PDF-"), 0o644)
	}
	return errors.New("converter crashed")
}

type fakeRenderer struct{}

func (fakeRenderer) RenderPDF(_ context.Context, _ *Tree, _, pdfPath string) error {
	return os.WriteFile(pdfPath, []byte("%PDF-1.4\n"), 0o644)
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestExportWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	out, err := NewExporter(dir, fakeRenderer{}).
		Export(context.Background(), NewAssembler().Assemble(sampleData()), models.DocumentInvoice, "2024-8")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out.DocxPath != filepath.Join(dir, "I_2024-8.docx") || out.PDFPath != filepath.Join(dir, "I_2024-8.pdf") {
		t.Errorf("output = %+v", out)
	}
	raw, err := os.ReadFile(out.DocxPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("PK")) {
		t.Error("docx is not a zip archive")
	}
}

func TestExportWithoutRenderer(t *testing.T) {
	dir := t.TempDir()
	out, err := NewExporter(dir, nil).
		Export(context.Background(), NewAssembler().Assemble(sampleData()), models.DocumentOffer, "2024-3")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out.PDFPath != "" {
		t.Errorf("unexpected PDF %s", out.PDFPath)
	}
	if names := entries(t, dir); len(names) != 1 || names[0] != "O_2024-3.docx" {
		t.Errorf("files = %v", names)
	}
}

func TestExportCleansUpOnFailure(t *testing.T) {
	for _, partial := range []bool{false, true} {
		dir := t.TempDir()
		_, err := NewExporter(dir, failingRenderer{partial: partial}).
			Export(context.Background(), NewAssembler().Assemble(sampleData()), models.DocumentInvoice, "2024-8")
		if !errors.Is(err, invoice.ErrExport) {
			t.Fatalf("err = %v, want ErrExport", err)
		}
		if names := entries(t, dir); len(names) != 0 {
			t.Errorf("partial=%v left files behind: %v", partial, names)
		}
	}
}
