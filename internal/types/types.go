// =============================================================================
// SDSVG Book - Shared Types
// =============================================================================
//
// This package contains the member-book model shared by the pipeline, the
// repository and every renderer. Types defined here are used by:
//   - converter   (extraction, grouping)
//   - repository  (persistence)
//   - httpapi     (page rendering)
//   - xmlwriter   (export)
//
// =============================================================================

package types

import (
	"time"

	"github.com/google/uuid"
)

// Order flags. FlagPrimary marks the head of a group and sorts first.
const (
	FlagPrimary   = "P"
	FlagSecondary = "S"
)

// =============================================================================
// MEMBER TYPES
// =============================================================================

// MemberRecord is one member row of the book.
type MemberRecord struct {
	// ID is the storage id. Zero until the record has been persisted.
	ID int64

	LastName     string
	Title        string
	FirstName    string
	MiddleName   string
	Gender       string
	Relationship string

	// DOBDisplay is D-Mon-YYYY, or the original text when it was not a date.
	DOBDisplay string

	// DOBISO is YYYY-MM-DD, empty when the date is unknown.
	DOBISO string

	Education string
	Mobile    string
	Email     string

	// Address is the member's own address, normalized to "\n" line breaks.
	Address string

	// OrderFlag is FlagPrimary, FlagSecondary or "".
	OrderFlag string

	// GroupLabel is the name of the group this member belongs to.
	GroupLabel string

	// GroupAddress is the stored group address. Only set for records
	// reloaded from storage.
	GroupAddress string

	// MemberName is last, title, first and middle name joined by spaces.
	MemberName string

	// SourceRow is the 1-based sheet row the record came from.
	SourceRow int
}

// FlagLabel returns the display label for the record's order flag.
func (m MemberRecord) FlagLabel() string {
	return FlagLabel(m.OrderFlag)
}

// FlagLabel maps an order flag to its display label.
func FlagLabel(flag string) string {
	switch flag {
	case FlagPrimary:
		return "Parent"
	case FlagSecondary:
		return "Child"
	default:
		return ""
	}
}

// Group is a named cluster of members sharing an address.
type Group struct {
	Name     string
	Address  string
	Rows     []MemberRecord
	RowCount int
}

// =============================================================================
// IMPORT TYPES
// =============================================================================

// ImportSummary describes one completed (or dry-run) import.
type ImportSummary struct {
	// ID identifies the import in logs.
	ID uuid.UUID

	// Source is the uploaded file name or the CLI path.
	Source string

	DataRows    int
	SkippedRows int
	Members     int
	Groups      int

	// Persisted is false for dry runs.
	Persisted bool

	Duration time.Duration
}
