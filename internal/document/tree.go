// Package document turns computed invoice data into a document tree and
// renders that tree to Word (.docx) and PDF.
//
// A Tree has a first-page header, a default header, a body, and first-page
// and default footers. Regions hold paragraphs and tables; table cells hold
// paragraphs. Renderers walk the tree and never look at invoice data.
package document

// Style names a paragraph style defined by the renderers.
type Style string

const (
	StyleNormal   Style = "Normal"
	StyleHeading1 Style = "Heading1"
	StyleHeading2 Style = "Heading2"
	StyleHeading3 Style = "Heading3"
	StyleFooter   Style = "Footer"
	StyleIndent   Style = "Indent"
)

// Alignment of a paragraph.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Tree is the assembled document.
type Tree struct {
	Title string

	FirstHeader []Block
	Header      []Block
	Body        []Block
	FirstFooter []Block
	Footer      []Block
}

// Block is a paragraph or a table.
type Block interface {
	block()
}

// RunKind says what a run renders as.
type RunKind int

const (
	RunText RunKind = iota
	RunTab
	RunBreak
	RunPageNumber
	RunImage
)

// Run is a piece of a paragraph.
type Run struct {
	Kind  RunKind
	Text  string
	Bold  bool
	Image *Image
}

// Image is an inline picture scaled to WidthCm.
type Image struct {
	Path    string
	WidthCm float64
}

// Paragraph is a styled sequence of runs.
type Paragraph struct {
	Style Style
	Align Alignment
	Runs  []Run
}

func (*Paragraph) block() {}

// Text appends a text run.
func (p *Paragraph) Text(s string) *Paragraph {
	p.Runs = append(p.Runs, Run{Kind: RunText, Text: s})
	return p
}

// Bold appends a bold text run.
func (p *Paragraph) Bold(s string) *Paragraph {
	p.Runs = append(p.Runs, Run{Kind: RunText, Text: s, Bold: true})
	return p
}

// Tab appends n tab stops.
func (p *Paragraph) Tab(n int) *Paragraph {
	for i := 0; i < n; i++ {
		p.Runs = append(p.Runs, Run{Kind: RunTab})
	}
	return p
}

// Break appends a line break.
func (p *Paragraph) Break() *Paragraph {
	p.Runs = append(p.Runs, Run{Kind: RunBreak})
	return p
}

// PageNumber appends the current page number field.
func (p *Paragraph) PageNumber() *Paragraph {
	p.Runs = append(p.Runs, Run{Kind: RunPageNumber})
	return p
}

// Picture appends an inline image.
func (p *Paragraph) Picture(img Image) *Paragraph {
	p.Runs = append(p.Runs, Run{Kind: RunImage, Image: &img})
	return p
}

// PlainText returns the text of the paragraph with breaks as newlines and
// tabs as tab characters. Page numbers and images are left out.
func (p *Paragraph) PlainText() string {
	var out []byte
	for _, r := range p.Runs {
		switch r.Kind {
		case RunText:
			out = append(out, r.Text...)
		case RunTab:
			out = append(out, '\t')
		case RunBreak:
			out = append(out, '\n')
		}
	}
	return string(out)
}

// Table is a fixed-width table. Widths are per grid column in centimetres.
type Table struct {
	Widths  []float64
	Rows    []*TableRow
	Borders BorderTemplate
}

func (*Table) block() {}

// TableRow is a row of cells.
type TableRow struct {
	Cells []*Cell
}

// Cell spans one or more grid columns.
type Cell struct {
	Span       int
	Paragraphs []*Paragraph
	Borders    CellBorders
}

// NewTable creates a table of rows x len(widths) empty cells.
func NewTable(rows int, widths ...float64) *Table {
	t := &Table{Widths: widths}
	for i := 0; i < rows; i++ {
		row := &TableRow{}
		for range widths {
			row.Cells = append(row.Cells, &Cell{Span: 1})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Cell returns the cell at row r, column c.
func (t *Table) Cell(r, c int) *Cell {
	return t.Rows[r].Cells[c]
}

// Merge joins cells c..c+n-1 of row r into one.
func (t *Table) Merge(r, c, n int) *Cell {
	row := t.Rows[r]
	merged := row.Cells[c]
	merged.Span = n
	row.Cells = append(row.Cells[:c+1], row.Cells[c+n:]...)
	return merged
}

// Width returns the width in centimetres of the cell at row r, index c,
// taking spans into account.
func (t *Table) Width(r, c int) float64 {
	col := 0
	for i, cell := range t.Rows[r].Cells {
		span := cell.Span
		if span < 1 {
			span = 1
		}
		if i == c {
			w := 0.0
			for j := col; j < col+span && j < len(t.Widths); j++ {
				w += t.Widths[j]
			}
			return w
		}
		col += span
	}
	return 0
}

// Paragraph adds a paragraph to the cell and returns it.
func (c *Cell) Paragraph(style Style, align Alignment) *Paragraph {
	p := &Paragraph{Style: style, Align: align}
	c.Paragraphs = append(c.Paragraphs, p)
	return p
}
