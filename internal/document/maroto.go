package document

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	mimage "github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/rs/zerolog"

	"invoicer/internal/logger"
)

const gridSize = 12

// MarotoRenderer draws the tree directly as a PDF, for machines without an
// office suite. Layout follows the tree but is not identical to the .docx.
type MarotoRenderer struct {
	log zerolog.Logger
}

// NewMarotoRenderer creates a renderer.
func NewMarotoRenderer() *MarotoRenderer {
	return &MarotoRenderer{log: logger.WithComponent("maroto")}
}

// RenderPDF writes the tree to pdfPath. The .docx is not used.
func (r *MarotoRenderer) RenderPDF(_ context.Context, tree *Tree, _ string, pdfPath string) error {
	doc, err := r.Render(tree)
	if err != nil {
		return err
	}
	if err := doc.Save(pdfPath); err != nil {
		return fmt.Errorf("failed to save PDF: %w", err)
	}
	r.log.Debug().Str("pdf", pdfPath).Msg("Rendered PDF")
	return nil
}

// Render lays out the tree and returns the generated document.
func (r *MarotoRenderer) Render(tree *Tree) (core.Document, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(12).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(tree.Title, true).
		WithPageNumber().
		Build()

	m := maroto.New(cfg)

	if rows := r.rows(tree.Footer); len(rows) > 0 {
		if err := m.RegisterFooter(rows...); err != nil {
			return nil, fmt.Errorf("failed to register footer: %w", err)
		}
	}
	m.AddRows(r.rows(tree.FirstHeader)...)
	m.AddRows(r.rows(tree.Body)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc, nil
}

func (r *MarotoRenderer) rows(blocks []Block) []core.Row {
	var out []core.Row
	for _, blk := range blocks {
		switch b := blk.(type) {
		case *Paragraph:
			content, height := paragraphComponents(b, 0)
			if height == 0 {
				continue
			}
			out = append(out, row.New(height).Add(col.New(gridSize).Add(content...)))
		case *Table:
			out = append(out, tableRows(b)...)
		}
	}
	return out
}

func tableRows(t *Table) []core.Row {
	sizes := gridColumns(t.Widths)
	var out []core.Row

	for r, tr := range t.Rows {
		var cols []core.Col
		height := 0.0
		gridCol := 0
		for _, cell := range tr.Cells {
			span := cell.Span
			if span < 1 {
				span = 1
			}
			size := 0
			for j := gridCol; j < gridCol+span && j < len(sizes); j++ {
				size += sizes[j]
			}
			gridCol += span

			var content []core.Component
			offset := 0.0
			for _, p := range cell.Paragraphs {
				c, h := paragraphComponents(p, offset)
				content = append(content, c...)
				offset += h
			}
			height = math.Max(height, offset)
			cols = append(cols, col.New(size).Add(content...))
		}

		first := tr.Cells[0].Borders
		if first.Top.Visible() && (r == 0 || !t.Rows[r-1].Cells[0].Borders.Bottom.Visible()) {
			out = append(out, line.NewRow(1, props.Line{Thickness: 0.3}))
		}
		out = append(out, row.New(math.Max(height, 1)).Add(cols...))
		if first.Bottom.Visible() {
			out = append(out, line.NewRow(1, props.Line{Thickness: 0.3}))
		}
	}
	return out
}

type textLine struct {
	text string
	bold bool
	page bool
}

// paragraphComponents turns a paragraph into text components stacked from
// top, returning the height used in millimetres.
func paragraphComponents(p *Paragraph, top float64) ([]core.Component, float64) {
	size, lineHeight := fontFor(p.Style)
	left := 0.0
	if p.Style == StyleIndent {
		left = 5
	}
	a := align.Left
	switch p.Align {
	case AlignCenter:
		a = align.Center
	case AlignRight:
		a = align.Right
	}
	style := fontstyle.Normal
	if p.Style == StyleHeading3 {
		style = fontstyle.Bold
	}

	lines := []textLine{{}}
	var out []core.Component
	height := 0.0
	for _, run := range p.Runs {
		cur := &lines[len(lines)-1]
		switch run.Kind {
		case RunText:
			cur.text += run.Text
			cur.bold = cur.bold || run.Bold
		case RunTab:
			cur.text += "    "
		case RunBreak:
			lines = append(lines, textLine{})
		case RunPageNumber:
			// maroto prints its own page number
			cur.page = true
		case RunImage:
			if run.Image != nil && run.Image.Path != "" {
				out = append(out, mimage.NewFromFile(run.Image.Path, props.Rect{Top: top, Percent: 100, Center: a == align.Center}))
				height = math.Max(height, 20)
			}
		}
	}

	y := top
	for _, l := range lines {
		if l.page {
			continue
		}
		s := style
		if l.bold {
			s = fontstyle.Bold
		}
		if strings.TrimSpace(l.text) != "" {
			out = append(out, text.New(l.text, props.Text{Top: y, Left: left, Size: size, Style: s, Align: a}))
		}
		y += lineHeight
	}
	return out, math.Max(height, y-top)
}

// fontFor returns the font size in points and the line height in millimetres.
func fontFor(s Style) (float64, float64) {
	var size float64
	switch s {
	case StyleHeading1:
		size = 18
	case StyleHeading2:
		size = 13
	case StyleFooter:
		size = 7.5
	default:
		size = 9
	}
	return size, size*0.3528*1.4 + 0.5
}

// gridColumns distributes the 12-column grid proportionally to widths.
func gridColumns(widths []float64) []int {
	total := 0.0
	for _, w := range widths {
		total += w
	}
	sizes := make([]int, len(widths))
	if total == 0 {
		return sizes
	}

	sum, widest := 0, 0
	for i, w := range widths {
		sizes[i] = int(math.Max(1, math.Round(w/total*gridSize)))
		sum += sizes[i]
		if w > widths[widest] {
			widest = i
		}
	}
	sizes[widest] += gridSize - sum
	if sizes[widest] < 1 {
		sizes[widest] = 1
	}
	return sizes
}
