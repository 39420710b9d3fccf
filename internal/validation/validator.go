// =============================================================================
// SDSVG Book - Header Validation
// =============================================================================
//
// This module resolves the header row of an uploaded sheet into column
// positions and validates that the mandatory columns are present.
//
// HEADER MATCHING:
//   Labels are compared after Unicode normalization, lower-casing and
//   trimming, so "Last Name", " last name " and "LAST NAME" all resolve to
//   the same column. When a label appears twice, the first column wins.
//
// MANDATORY COLUMNS:
//   "last name", "first name", "group"
//
// ALIASES:
//   Some semantic columns are accepted under several labels. Aliases are
//   listed in priority order and narrowed with HeaderMap.Present.
//
// =============================================================================

package validation

import (
	"strings"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/normalize"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// COLUMN NAMES
// =============================================================================

// Normalized column labels understood by the extractor.
const (
	ColumnLastName     = "last name"
	ColumnTitle        = "title"
	ColumnFirstName    = "first name"
	ColumnMiddleName   = "middle name"
	ColumnGender       = "gender"
	ColumnRelationship = "relationship"
	ColumnDOB          = "dob"
	ColumnEducation    = "education"
	ColumnMobile       = "mobile"
	ColumnEmail        = "email"
	ColumnAddress      = "address"
	ColumnGroup        = "group"
)

// RequiredColumns must be present in every header row, in reporting order.
var RequiredColumns = []string{ColumnLastName, ColumnFirstName, ColumnGroup}

// OrderFlagAliases are the labels accepted for the order-flag column, in
// priority order.
var OrderFlagAliases = []string{"record", "p/s", "p_s", "p"}

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError reports mandatory columns missing from the header row.
type ValidationError struct {
	// Missing holds the display names of the missing columns.
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Missing required column(s): " + strings.Join(e.Missing, ", ")
}

// =============================================================================
// HEADER MAP
// =============================================================================

// HeaderMap maps a normalized header label to its 0-based column index.
type HeaderMap map[string]int

// NormalizeHeader folds a header label for comparison.
func NormalizeHeader(label string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(label)))
}

// ResolveHeaders builds the header map for a header row and checks the
// mandatory columns. A missing column yields a validation error wrapping a
// *ValidationError.
func ResolveHeaders(header xlsxparser.RawRow) (HeaderMap, error) {
	headers := make(HeaderMap, len(header))
	for i, cell := range header {
		if cell.IsEmpty() {
			continue
		}
		label := NormalizeHeader(normalize.Value(cell))
		if label == "" {
			continue
		}
		if _, exists := headers[label]; exists {
			continue
		}
		headers[label] = i
	}

	if missing := headers.Missing(RequiredColumns); len(missing) > 0 {
		ve := &ValidationError{Missing: missing}
		return nil, &apperr.Error{Kind: apperr.KindValidation, Message: ve.Error(), Cause: ve}
	}
	return headers, nil
}

// Index returns the column of a normalized label.
func (h HeaderMap) Index(label string) (int, bool) {
	i, ok := h[label]
	return i, ok
}

// Present returns the aliases found in the header row, keeping their
// priority order.
func (h HeaderMap) Present(aliases ...string) []string {
	var found []string
	for _, alias := range aliases {
		if _, ok := h[alias]; ok {
			found = append(found, alias)
		}
	}
	return found
}

// Columns returns every mapped column index.
func (h HeaderMap) Columns() []int {
	cols := make([]int, 0, len(h))
	for _, i := range h {
		cols = append(cols, i)
	}
	return cols
}

// Missing returns the display names of required labels absent from h.
func (h HeaderMap) Missing(required []string) []string {
	var missing []string
	for _, label := range required {
		if _, ok := h[label]; !ok {
			missing = append(missing, DisplayName(label))
		}
	}
	return missing
}

// DisplayName title-cases a normalized label: "last name" -> "Last Name".
// A Caser keeps state, so one is built per call.
func DisplayName(label string) string {
	return cases.Title(language.English).String(label)
}
