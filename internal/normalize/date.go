package normalize

import (
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
)

const (
	// DisplayLayout renders dates as 15-Mar-2023.
	DisplayLayout = "2-Jan-2006"

	// ISOLayout renders dates as 2023-03-15.
	ISOLayout = "2006-01-02"

	// serialUnixEpoch is the spreadsheet serial number of 1970-01-01 in the
	// 1900 date system (day 0 = 1899-12-30).
	serialUnixEpoch = 25569

	secondsPerDay = 86400
)

// strictLayouts are tried in order; the first match wins. The order decides
// ambiguous input such as "01-02-2024" (1 Feb, not 2 Jan).
var strictLayouts = []string{
	"2006-1-2",    // YYYY-MM-DD
	"2/1/2006",    // DD/MM/YYYY
	"1/2/2006",    // MM/DD/YYYY
	"2-1-2006",    // DD-MM-YYYY
	"1-2-2006",    // MM-DD-YYYY
	"2.1.2006",    // DD.MM.YYYY
	"02 Jan 2006", // DD Mon YYYY
	"2 Jan 2006",  // D Mon YYYY
}

// DateDisplay renders a date cell as D-Mon-YYYY. Text that cannot be read as
// a date is returned trimmed and unchanged.
func DateDisplay(c xlsxparser.Cell) string {
	t, text, ok := ParseDate(c)
	if !ok {
		return text
	}
	return t.Format(DisplayLayout)
}

// DateISO renders a date cell as YYYY-MM-DD, or "" when it is not a date.
func DateISO(c xlsxparser.Cell) string {
	t, _, ok := ParseDate(c)
	if !ok {
		return ""
	}
	return t.Format(ISOLayout)
}

// ParseDate reads a cell as a date. It also returns the cell's normalized
// text, which callers use as the lossy fallback when ok is false.
func ParseDate(c xlsxparser.Cell) (t time.Time, text string, ok bool) {
	if c.Kind == xlsxparser.CellNumber && c.Number > 0 {
		if t, ok := fromSerial(c.Number); ok {
			return t, Value(c), true
		}
	}

	text = Value(c)
	if text == "" {
		return time.Time{}, "", false
	}

	for _, layout := range strictLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t, text, true
		}
	}

	if t, ok := parseLenient(text); ok {
		return t, text, true
	}
	return time.Time{}, text, false
}

// fromSerial converts a spreadsheet serial date. Serials before the Unix
// epoch are rejected so they fall through to text handling.
func fromSerial(serial float64) (time.Time, bool) {
	ts := math.Round((serial - serialUnixEpoch) * secondsPerDay)
	if ts < 0 || ts > math.MaxInt64 {
		return time.Time{}, false
	}
	return time.Unix(int64(ts), 0).UTC(), true
}

// parseLenient is the free-form fallback. dateparse can panic on some
// malformed inputs, which is treated as a failed parse.
func parseLenient(text string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	parsed, err := dateparse.ParseIn(strings.TrimSpace(text), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
