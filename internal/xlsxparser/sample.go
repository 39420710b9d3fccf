package xlsxparser

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SampleSheetName is the sheet name used by the downloadable sample workbook.
const SampleSheetName = "Members"

// SampleHeader lists the columns of the sample workbook in display order.
var SampleHeader = []string{
	"Group",
	"Address",
	"Last Name",
	"Title",
	"First Name",
	"Middle Name",
	"Gender",
	"Relationship",
	"DOB",
	"Education",
	"Mobile",
	"Email",
	"P/S",
}

// sampleRows mirrors SampleHeader. DOB values are written as numbers so the
// sample exercises serial-date handling.
var sampleRows = [][]any{
	{"Patel Family", "12 Lake Road\nAhmedabad", "Patel", "Mr", "Ramesh", "K", "Male", "Self", 25204, "B.Com", "9876543210", "ramesh@example.com", "P"},
	{"Patel Family", "", "Patel", "Mrs", "Sita", "R", "Female", "Wife", 26299, "B.A.", "9876543211", "", "S"},
	{"Patel Family", "", "Patel", "", "Anil", "", "Male", "Son", "12/08/2001", "B.E.", "", "", "S"},
	{"Shah Family", "4 Station Street", "Shah", "Dr", "Meera", "", "Female", "Primary", "1972-05-30", "MBBS", "9822000000", "meera@example.com", ""},
}

// GenerateSample builds the sample import workbook and returns its bytes.
func GenerateSample() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SampleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 15}) // d-mmm-yy
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	for col, header := range SampleHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SampleSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(SampleHeader), 1)
	if err := f.SetCellStyle(SampleSheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for r, values := range sampleRows {
		for c, value := range values {
			if s, ok := value.(string); ok && s == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(SampleSheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
			if _, ok := value.(int); ok {
				if err := f.SetCellStyle(SampleSheetName, cell, cell, dateStyle); err != nil {
					return nil, fmt.Errorf("failed to set date style: %w", err)
				}
			}
		}
	}

	if err := f.SetColWidth(SampleSheetName, "A", "M", 16); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
