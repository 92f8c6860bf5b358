package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for logo sizing
	_ "image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	relStyles = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relHeader = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	relFooter = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	relImage  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	emuPerCm = 360000
)

// A4 portrait with 1.5 cm side margins, in twentieths of a point.
const (
	pageWidth    = 11906
	pageHeight   = 16838
	marginTop    = 1134
	marginSide   = 850
	marginBottom = 1134
	headerOffset = 708
)

// DocxWriter serialises a Tree as a WordprocessingML package.
type DocxWriter struct{}

// NewDocxWriter creates a writer.
func NewDocxWriter() *DocxWriter {
	return &DocxWriter{}
}

type relationship struct {
	ID, Type, Target string
}

type media struct {
	name string // word/media/<name>
	path string
}

// part is one XML part being written, with its own relationships.
type part struct {
	b    strings.Builder
	rels []relationship
	pkg  *docxPackage
}

type docxPackage struct {
	media  []media
	docPrs int
	err    error
}

// WriteFile writes the tree to path.
func (w *DocxWriter) WriteFile(tree *Tree, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.Write(tree, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the tree as a .docx package to out.
func (w *DocxWriter) Write(tree *Tree, out io.Writer) error {
	pkg := &docxPackage{}

	parts := []struct {
		name, root string
		blocks     []Block
		relType    string
		refType    string // first or default
		refKind    string // headerReference or footerReference
	}{
		{"header1.xml", "hdr", tree.FirstHeader, relHeader, "first", "headerReference"},
		{"header2.xml", "hdr", tree.Header, relHeader, "default", "headerReference"},
		{"footer1.xml", "ftr", tree.FirstFooter, relFooter, "first", "footerReference"},
		{"footer2.xml", "ftr", tree.Footer, relFooter, "default", "footerReference"},
	}

	doc := &part{pkg: pkg}
	doc.rels = append(doc.rels, relationship{ID: "rIdStyles", Type: relStyles, Target: "styles.xml"})

	files := map[string]string{}
	var order []string
	add := func(name, content string) {
		if _, ok := files[name]; !ok {
			order = append(order, name)
		}
		files[name] = content
	}

	var sectRefs strings.Builder
	for i, p := range parts {
		hp := &part{pkg: pkg}
		hp.b.WriteString(xml.Header)
		fmt.Fprintf(&hp.b, `<w:%s xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s">`,
			p.root, nsW, nsR, nsWP, nsA, nsPic)
		hp.blocks(p.blocks)
		fmt.Fprintf(&hp.b, `</w:%s>`, p.root)
		add("word/"+p.name, hp.b.String())
		if len(hp.rels) > 0 {
			add("word/_rels/"+p.name+".rels", relsXML(hp.rels))
		}

		id := fmt.Sprintf("rIdHF%d", i+1)
		doc.rels = append(doc.rels, relationship{ID: id, Type: p.relType, Target: p.name})
		fmt.Fprintf(&sectRefs, `<w:%s w:type="%s" r:id="%s"/>`, p.refKind, p.refType, id)
	}

	doc.b.WriteString(xml.Header)
	fmt.Fprintf(&doc.b, `<w:document xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"><w:body>`,
		nsW, nsR, nsWP, nsA, nsPic)
	doc.blocks(tree.Body)
	fmt.Fprintf(&doc.b, `<w:sectPr>%s<w:pgSz w:w="%d" w:h="%d"/>`, sectRefs.String(), pageWidth, pageHeight)
	fmt.Fprintf(&doc.b, `<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="%d" w:footer="%d" w:gutter="0"/>`,
		marginTop, marginSide, marginBottom, marginSide, headerOffset, headerOffset)
	doc.b.WriteString(`<w:titlePg/></w:sectPr></w:body></w:document>`)
	add("word/document.xml", doc.b.String())
	add("word/_rels/document.xml.rels", relsXML(doc.rels))
	add("word/styles.xml", stylesXML)
	add("docProps/core.xml", coreXML(tree.Title))

	if pkg.err != nil {
		return pkg.err
	}

	zw := zip.NewWriter(out)
	writeEntry := func(name string, r io.Reader) error {
		fw, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, r)
		return err
	}

	if err := writeEntry("[Content_Types].xml", strings.NewReader(contentTypesXML(pkg.media))); err != nil {
		return err
	}
	if err := writeEntry("_rels/.rels", strings.NewReader(rootRelsXML)); err != nil {
		return err
	}
	for _, name := range order {
		if err := writeEntry(name, strings.NewReader(files[name])); err != nil {
			return err
		}
	}
	for _, m := range pkg.media {
		f, err := os.Open(m.path)
		if err != nil {
			return err
		}
		err = writeEntry("word/media/"+m.name, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return zw.Close()
}

func (p *part) blocks(blocks []Block) {
	endsWithTable := true
	for _, blk := range blocks {
		switch b := blk.(type) {
		case *Paragraph:
			p.paragraph(b)
			endsWithTable = false
		case *Table:
			p.table(b)
			endsWithTable = true
		}
	}
	// Word wants a paragraph after a trailing table (and in empty parts).
	if endsWithTable {
		p.b.WriteString(`<w:p/>`)
	}
}

func (p *part) paragraph(para *Paragraph) {
	p.b.WriteString(`<w:p>`)
	if para.Style != "" || para.Align != "" {
		p.b.WriteString(`<w:pPr>`)
		if para.Style != "" && para.Style != StyleNormal {
			fmt.Fprintf(&p.b, `<w:pStyle w:val="%s"/>`, para.Style)
		}
		if para.Align != "" && para.Align != AlignLeft {
			fmt.Fprintf(&p.b, `<w:jc w:val="%s"/>`, para.Align)
		}
		p.b.WriteString(`</w:pPr>`)
	}
	for _, r := range para.Runs {
		p.run(r)
	}
	p.b.WriteString(`</w:p>`)
}

func (p *part) run(r Run) {
	switch r.Kind {
	case RunText:
		p.b.WriteString(`<w:r>`)
		if r.Bold {
			p.b.WriteString(`<w:rPr><w:b/></w:rPr>`)
		}
		p.b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(&p.b, []byte(r.Text))
		p.b.WriteString(`</w:t></w:r>`)
	case RunTab:
		p.b.WriteString(`<w:r><w:tab/></w:r>`)
	case RunBreak:
		p.b.WriteString(`<w:r><w:br/></w:r>`)
	case RunPageNumber:
		p.b.WriteString(`<w:r><w:fldChar w:fldCharType="begin"/></w:r>`)
		p.b.WriteString(`<w:r><w:instrText xml:space="preserve"> PAGE </w:instrText></w:r>`)
		p.b.WriteString(`<w:r><w:fldChar w:fldCharType="separate"/></w:r>`)
		p.b.WriteString(`<w:r><w:t>1</w:t></w:r>`)
		p.b.WriteString(`<w:r><w:fldChar w:fldCharType="end"/></w:r>`)
	case RunImage:
		p.image(r.Image)
	}
}

func (p *part) image(img *Image) {
	if img == nil || img.Path == "" {
		return
	}
	cx, cy, err := imageExtent(img)
	if err != nil {
		if p.pkg.err == nil {
			p.pkg.err = fmt.Errorf("logo %s: %w", img.Path, err)
		}
		return
	}

	p.pkg.docPrs++
	n := p.pkg.docPrs
	name := fmt.Sprintf("image%d%s", len(p.pkg.media)+1, strings.ToLower(filepath.Ext(img.Path)))
	p.pkg.media = append(p.pkg.media, media{name: name, path: img.Path})

	id := fmt.Sprintf("rIdImg%d", len(p.rels)+1)
	p.rels = append(p.rels, relationship{ID: id, Type: relImage, Target: "media/" + name})

	fmt.Fprintf(&p.b, `<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%d" cy="%d"/><wp:docPr id="%d" name="Picture %d"/>`+
		`<a:graphic><a:graphicData uri="%s"><pic:pic>`+
		`<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		cx, cy, n, n, nsPic, n, name, id, cx, cy)
}

func imageExtent(img *Image) (int64, int64, error) {
	f, err := os.Open(img.Path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width == 0 {
		return 0, 0, fmt.Errorf("image has zero width")
	}
	cx := int64(math.Round(img.WidthCm * emuPerCm))
	cy := cx * int64(cfg.Height) / int64(cfg.Width)
	return cx, cy, nil
}

func (p *part) table(t *Table) {
	total := 0
	for _, w := range t.Widths {
		total += twips(w)
	}
	fmt.Fprintf(&p.b, `<w:tbl><w:tblPr><w:tblW w:w="%d" w:type="dxa"/><w:tblLayout w:type="fixed"/></w:tblPr><w:tblGrid>`, total)
	for _, w := range t.Widths {
		fmt.Fprintf(&p.b, `<w:gridCol w:w="%d"/>`, twips(w))
	}
	p.b.WriteString(`</w:tblGrid>`)

	for r, row := range t.Rows {
		p.b.WriteString(`<w:tr>`)
		for c, cell := range row.Cells {
			fmt.Fprintf(&p.b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/>`, twips(t.Width(r, c)))
			if cell.Span > 1 {
				fmt.Fprintf(&p.b, `<w:gridSpan w:val="%d"/>`, cell.Span)
			}
			p.borders(cell.Borders)
			p.b.WriteString(`</w:tcPr>`)
			if len(cell.Paragraphs) == 0 {
				p.b.WriteString(`<w:p/>`)
			}
			for _, para := range cell.Paragraphs {
				p.paragraph(para)
			}
			p.b.WriteString(`</w:tc>`)
		}
		p.b.WriteString(`</w:tr>`)
	}
	p.b.WriteString(`</w:tbl>`)
}

func (p *part) borders(b CellBorders) {
	if b == (CellBorders{}) {
		return
	}
	p.b.WriteString(`<w:tcBorders>`)
	for _, e := range []struct {
		tag string
		b   Border
	}{{"top", b.Top}, {"left", b.Start}, {"bottom", b.Bottom}, {"right", b.End}} {
		if e.b.Size == 0 {
			continue
		}
		fmt.Fprintf(&p.b, `<w:%s w:val="single" w:sz="%d" w:space="0" w:color="%s"/>`, e.tag, e.b.Size, e.b.Color)
	}
	p.b.WriteString(`</w:tcBorders>`)
}

func twips(cm float64) int {
	return int(math.Round(cm * 1440 / 2.54))
}

func relsXML(rels []relationship) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"/>`, r.ID, r.Type, r.Target)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func contentTypesXML(m []media) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)

	seen := map[string]bool{}
	for _, f := range m {
		ext := strings.TrimPrefix(filepath.Ext(f.name), ".")
		if seen[ext] {
			continue
		}
		seen[ext] = true
		ct := "image/png"
		if ext == "jpg" || ext == "jpeg" {
			ct = "image/jpeg"
		}
		fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, ext, ct)
	}

	const wml = "application/vnd.openxmlformats-officedocument.wordprocessingml."
	fmt.Fprintf(&b, `<Override PartName="/word/document.xml" ContentType="%sdocument.main+xml"/>`, wml)
	fmt.Fprintf(&b, `<Override PartName="/word/styles.xml" ContentType="%sstyles+xml"/>`, wml)
	for _, h := range []string{"header1", "header2"} {
		fmt.Fprintf(&b, `<Override PartName="/word/%s.xml" ContentType="%sheader+xml"/>`, h, wml)
	}
	for _, f := range []string{"footer1", "footer2"} {
		fmt.Fprintf(&b, `<Override PartName="/word/%s.xml" ContentType="%sfooter+xml"/>`, f, wml)
	}
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`</Types>`)
	return b.String()
}

func coreXML(title string) string {
	var t strings.Builder
	xml.EscapeText(&t, []byte(title))
	return xml.Header +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + t.String() + `</dc:title></cp:coreProperties>`
}

const rootRelsXML = xml.Header +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

// Font sizes are in half-points, spacing in twentieths of a point.
const stylesXML = xml.Header +
	`<w:styles xmlns:w="` + nsW + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Liberation Sans Narrow" w:hAnsi="Liberation Sans Narrow" w:cs="Liberation Sans Narrow"/><w:sz w:val="24"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:before="0" w:after="0"/><w:outlineLvl w:val="0"/></w:pPr>` +
	`<w:rPr><w:rFonts w:ascii="Liberation Sans" w:hAnsi="Liberation Sans" w:cs="Liberation Sans"/><w:color w:val="000000"/><w:sz w:val="40"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:before="240" w:after="240"/><w:outlineLvl w:val="1"/></w:pPr>` +
	`<w:rPr><w:color w:val="000000"/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:qFormat/>` +
	`<w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Footer"><w:name w:val="footer"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:spacing w:before="240"/></w:pPr><w:rPr><w:sz w:val="20"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:customStyle="1" w:styleId="Indent"><w:name w:val="Indent"/><w:basedOn w:val="Normal"/>` +
	`<w:pPr><w:widowControl/><w:spacing w:before="240"/><w:ind w:left="283" w:hanging="283"/></w:pPr></w:style>` +
	`</w:styles>`
