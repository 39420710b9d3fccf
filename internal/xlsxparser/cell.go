package xlsxparser

// CellKind tags the raw value held by a Cell.
type CellKind int

const (
	// CellEmpty is an absent or blank cell. It is the zero value.
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
	CellError
)

// Cell is a raw scalar as produced by the decoder. Exactly one of Text or
// Number is meaningful, depending on Kind.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Text returns a text cell.
func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// Number returns a numeric cell.
func Number(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

// IsEmpty reports whether the cell holds no value at all.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// RawRow is one sheet row, indexed by 0-based column.
type RawRow []Cell

// At returns the cell at column i, or an empty cell when the row is shorter.
func (r RawRow) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Cell{}
	}
	return r[i]
}

// Workbook is the decoded first sheet of a spreadsheet. Rows[0] is the
// header row.
type Workbook struct {
	// Source is the file name or path the rows were read from.
	Source string

	// Sheet is the name of the sheet that was read.
	Sheet string

	Rows []RawRow
}

// Header returns the header row, or nil for an empty sheet.
func (w *Workbook) Header() RawRow {
	if len(w.Rows) == 0 {
		return nil
	}
	return w.Rows[0]
}

// DataRows returns every row after the header.
func (w *Workbook) DataRows() []RawRow {
	if len(w.Rows) < 2 {
		return nil
	}
	return w.Rows[1:]
}
