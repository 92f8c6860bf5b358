package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readDocx(t *testing.T, tree *Tree) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	if err := NewDocxWriter().Write(tree, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = string(raw)
	}
	return files
}

func wellFormed(t *testing.T, name, content string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(content))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("%s is not well-formed: %v", name, err)
		}
	}
}

func TestDocxPackage(t *testing.T) {
	files := readDocx(t, NewAssembler().Assemble(sampleData()))

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"word/document.xml",
		"word/_rels/document.xml.rels",
		"word/styles.xml",
		"word/header1.xml",
		"word/header2.xml",
		"word/footer1.xml",
		"word/footer2.xml",
		"docProps/core.xml",
	} {
		content, ok := files[name]
		if !ok {
			t.Errorf("missing %s", name)
			continue
		}
		if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".rels") {
			wellFormed(t, name, content)
		}
	}

	doc := files["word/document.xml"]
	for _, want := range []string{
		`<w:titlePg/>`,
		`w:type="first"`,
		`<w:tcBorders>`,
		`w:sz="6"`,
		`w:color="FFFFFF"`,
		`Gelieve het factuurbedrag`,
		`€ 550,01`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
	if f := files["word/footer2.xml"]; !strings.Contains(f, "PAGE") || !strings.Contains(f, `w:fldCharType="begin"`) {
		t.Error("default footer has no page field")
	}
	if !strings.Contains(files["word/header1.xml"], "Factuur nr.") {
		t.Error("first header lacks the document details")
	}
	if !strings.Contains(files["docProps/core.xml"], "Factuur 2024-8") {
		t.Error("core properties lack the title")
	}
}

func TestDocxEscapesText(t *testing.T) {
	tree := &Tree{Body: []Block{(&Paragraph{Style: StyleNormal}).Text(`Tom & Jerry <"BV">`)}}
	files := readDocx(t, tree)
	wellFormed(t, "word/document.xml", files["word/document.xml"])
	if !strings.Contains(files["word/document.xml"], "Tom &amp; Jerry") {
		t.Error("ampersand not escaped")
	}
}

func TestDocxEmbedsLogo(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.png")
	img := image.NewRGBA(image.Rect(0, 0, 40, 10))
	img.Set(0, 0, color.Black)
	f, err := os.Create(logo)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data := sampleData()
	data.LogoPath = logo
	files := readDocx(t, NewAssembler().Assemble(data))

	if _, ok := files["word/media/image1.png"]; !ok {
		t.Fatal("logo not embedded")
	}
	rels, ok := files["word/_rels/header1.xml.rels"]
	if !ok || !strings.Contains(rels, "media/image1.png") {
		t.Errorf("header relationships = %q", rels)
	}
	// 7.5cm wide at a 4:1 aspect ratio
	if !strings.Contains(files["word/header1.xml"], `cx="2700000" cy="675000"`) {
		t.Error("logo extent not scaled to the configured width")
	}
	if !strings.Contains(files["[Content_Types].xml"], `Extension="png"`) {
		t.Error("png content type not declared")
	}
}

func TestDocxMissingLogo(t *testing.T) {
	data := sampleData()
	data.LogoPath = filepath.Join(t.TempDir(), "missing.png")
	if err := NewDocxWriter().Write(NewAssembler().Assemble(data), io.Discard); err == nil {
		t.Fatal("expected an error for a missing logo")
	}
}
