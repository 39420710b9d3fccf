// =============================================================================
// SDSVG Book - XLSX Workbook Decoder
// =============================================================================
//
// This module turns an uploaded .xlsx workbook into a Workbook: the ordered
// rows of the first sheet, each cell tagged with its raw kind.
//
// CELL CLASSIFICATION:
//   Cells are read with RawCellValue so number formats never leak into the
//   value (a date-formatted cell yields its serial number, not "15-Mar-23").
//   The kind comes from the cell's type attribute:
//
//   | Cell type                      | Kind                                   |
//   |--------------------------------|----------------------------------------|
//   | shared string, inline, formula | Text                                   |
//   | bool                           | Bool                                   |
//   | error                          | Error                                  |
//   | number, date, unset            | Number if the value parses, else Text  |
//
// Only the first sheet is read. Multi-sheet workbooks are not supported.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned for a workbook without any worksheet.
var ErrNoSheets = errors.New("the workbook does not contain any sheets")

// Open decodes the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperr.Decode(fmt.Errorf("unable to read the spreadsheet: %w", err))
	}
	defer f.Close()

	return readFirstSheet(f, path)
}

// Read decodes a workbook from r. name is only used for diagnostics.
func Read(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Decode(fmt.Errorf("unable to read the spreadsheet: %w", err))
	}
	defer f.Close()

	return readFirstSheet(f, name)
}

// readFirstSheet materializes every row of the first sheet.
func readFirstSheet(f *excelize.File, source string) (*Workbook, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, apperr.Decode(ErrNoSheets)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperr.Decode(fmt.Errorf("unable to read rows from sheet %q: %w", sheet, err))
	}

	wb := &Workbook{
		Source: source,
		Sheet:  sheet,
		Rows:   make([]RawRow, 0, len(rows)),
	}

	for r, row := range rows {
		raw := make(RawRow, len(row))
		for c, value := range row {
			if value == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, apperr.Decode(fmt.Errorf("invalid cell position row %d col %d: %w", r+1, c+1, err))
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, apperr.Decode(fmt.Errorf("unable to read cell %s: %w", axis, err))
			}
			raw[c] = classify(typ, value)
		}
		wb.Rows = append(wb.Rows, raw)
	}

	return wb, nil
}

// classify maps an excelize cell type and raw value onto a Cell.
func classify(typ excelize.CellType, value string) Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return Text(value)
	case excelize.CellTypeBool:
		return Cell{Kind: CellBool, Text: value}
	case excelize.CellTypeError:
		return Cell{Kind: CellError, Text: value}
	}

	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return Number(n)
	}
	return Text(value)
}
