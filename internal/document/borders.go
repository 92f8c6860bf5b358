package document

// BorderTemplate assigns edge borders to every cell of a table.
type BorderTemplate string

const (
	// NoBorders draws every edge as a hairline in white.
	NoBorders BorderTemplate = "NO_BORDERS"
	// Detail1 rules the header row above and below and the last row above.
	Detail1 BorderTemplate = "DETAIL_1"
)

// Border is one cell edge. Size is in eighths of a point.
type Border struct {
	Size  int
	Color string // RRGGBB
}

// Visible reports whether the edge would show on a white page.
func (b Border) Visible() bool {
	return b.Size > 0 && b.Color != "FFFFFF"
}

// CellBorders are the four edges of a cell.
type CellBorders struct {
	Top, Bottom, Start, End Border
}

var (
	hidden = Border{Size: 1, Color: "FFFFFF"}
	rule   = Border{Size: 6, Color: "000000"}
)

// ApplyBorders sets the borders of every cell according to the table's
// template. Unknown templates leave the cells untouched.
func ApplyBorders(t *Table) {
	n := len(t.Rows)
	for i, row := range t.Rows {
		var b CellBorders
		switch t.Borders {
		case NoBorders:
			b = CellBorders{Top: hidden, Bottom: hidden, Start: hidden, End: hidden}
		case Detail1:
			switch {
			case i == 0:
				b = CellBorders{Top: rule, Bottom: rule, Start: hidden, End: hidden}
			case i == n-1:
				b = CellBorders{Top: rule, Bottom: hidden, Start: hidden, End: hidden}
			default:
				b = CellBorders{Top: hidden, Bottom: hidden, Start: hidden, End: hidden}
			}
		default:
			continue
		}
		for _, cell := range row.Cells {
			cell.Borders = b
		}
	}
}
