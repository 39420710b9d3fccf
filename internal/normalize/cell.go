// Package normalize converts raw workbook cells into canonical strings.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
)

// fractionDigits is the precision used for non-integral numbers before
// trailing zeros are stripped.
const fractionDigits = 8

// Value returns the canonical trimmed string for a raw cell. Numbers that
// are whole render as plain integers; other numbers keep up to eight
// fractional digits. Bool, error and empty cells yield "".
func Value(c xlsxparser.Cell) string {
	switch c.Kind {
	case xlsxparser.CellText:
		return strings.TrimSpace(c.Text)
	case xlsxparser.CellNumber:
		return formatNumber(c.Number)
	case xlsxparser.CellEmpty, xlsxparser.CellBool, xlsxparser.CellError:
		return ""
	default:
		return ""
	}
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if v == math.Trunc(v) {
		if v == 0 {
			return "0"
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	}

	s := strconv.FormatFloat(v, 'f', fractionDigits, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

var blankLines = regexp.MustCompile(`\n{2,}`)

// Address unifies line breaks to "\n", collapses blank lines and trims.
func Address(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
