// =============================================================================
// SDSVG Book - CSV Parser Module
// =============================================================================
//
// This module reads a member list exported as CSV and returns it in the same
// Workbook shape the xlsx decoder produces, so the rest of the pipeline does
// not care which format the file came in.
//
// FEATURES:
//   - Configurable delimiter (comma, pipe, tab, semicolon)
//   - Optional comment lines
//   - Ragged rows and lazy quotes are tolerated
//   - A UTF-8 byte order mark on the first header is removed
//
// CELL TYPES:
//   CSV has no cell types, so values are classified by shape: a plain
//   decimal number becomes a Number cell, everything else stays Text.
//   Values with a leading zero ("0079", "09825012345") stay Text so phone
//   numbers and codes keep their digits.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
)

// SheetName is reported as the sheet of every CSV workbook.
const SheetName = "csv"

const byteOrderMark = "\uFEFF"

// numberPattern accepts plain decimals without a redundant leading zero.
var numberPattern = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?$`)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file from disk.
func Parse(filePath string, settings config.CSVSettings) (*xlsxparser.Workbook, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, apperr.Decode(fmt.Errorf("unable to open CSV file: %w", err))
	}
	defer file.Close()

	return Read(file, filePath, settings)
}

// Read parses CSV data from r. source is recorded on the workbook.
func Read(r io.Reader, source string, settings config.CSVSettings) (*xlsxparser.Workbook, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	configureReader(csvReader, settings)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, apperr.Decode(fmt.Errorf("unable to read CSV: %w", err))
	}

	wb := &xlsxparser.Workbook{
		Source: source,
		Sheet:  SheetName,
		Rows:   make([]xlsxparser.RawRow, 0, len(records)),
	}
	for i, record := range records {
		if i == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], byteOrderMark)
		}
		wb.Rows = append(wb.Rows, toRow(record))
	}
	return wb, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	if len(settings.Comment) > 0 {
		reader.Comment = rune(settings.Comment[0])
	}

	// Rows may have fewer trailing columns than the header.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// toRow classifies each field of a record.
func toRow(record []string) xlsxparser.RawRow {
	row := make(xlsxparser.RawRow, len(record))
	for i, field := range record {
		row[i] = classify(field)
	}
	return row
}

func classify(field string) xlsxparser.Cell {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return xlsxparser.Cell{}
	}
	if numberPattern.MatchString(trimmed) {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return xlsxparser.Number(n)
		}
	}
	return xlsxparser.Text(field)
}
