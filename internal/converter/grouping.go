package converter

import (
	"sort"
	"strings"

	"github.com/sdsvg/sdsvg-book/internal/apperr"
	"github.com/sdsvg/sdsvg-book/internal/types"
)

// DefaultGroup is the group label used when a row leaves the group blank.
const DefaultGroup = "Ungrouped"

var (
	// ErrNoDataRows is returned when the sheet has a header but nothing below it.
	ErrNoDataRows = apperr.Validation("The uploaded file does not contain any data rows.")

	// ErrNoMemberRows is returned when every data row was blank. It is an
	// informational condition, not a parse failure.
	ErrNoMemberRows = apperr.Validation("No member rows were found in the uploaded file.")
)

// GroupRecords buckets records by group label in first-seen order and sorts
// each group's members.
func GroupRecords(records []types.MemberRecord) ([]types.Group, error) {
	groups := BucketOrdered(records)
	if len(groups) == 0 {
		return nil, ErrNoMemberRows
	}
	for i := range groups {
		SortMembers(groups[i].Rows)
	}
	return groups, nil
}

// BucketOrdered groups records without reordering them. The group address
// comes from the first record carrying a stored group address, else from
// the first member with a non-empty address.
func BucketOrdered(records []types.MemberRecord) []types.Group {
	var groups []types.Group
	index := make(map[string]int)

	for _, rec := range records {
		name := rec.GroupLabel
		if name == "" {
			name = DefaultGroup
			rec.GroupLabel = name
		}

		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, types.Group{Name: name})
		}

		g := &groups[i]
		if g.Address == "" {
			if rec.GroupAddress != "" {
				g.Address = rec.GroupAddress
			} else if rec.Address != "" {
				g.Address = rec.Address
			}
		}
		g.Rows = append(g.Rows, rec)
	}

	for i := range groups {
		groups[i].RowCount = len(groups[i].Rows)
		for j := range groups[i].Rows {
			groups[i].Rows[j].GroupAddress = groups[i].Address
		}
	}
	return groups
}

// Priority is the sort tier of an order flag: primary members first, every
// other value shares the second tier.
func Priority(flag string) int {
	if flag == types.FlagPrimary {
		return 0
	}
	return 1
}

// SortMembers orders members by priority, then last name, then first name,
// ignoring case. Ties keep their input order.
func SortMembers(rows []types.MemberRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if pa, pb := Priority(a.OrderFlag), Priority(b.OrderFlag); pa != pb {
			return pa < pb
		}
		if la, lb := strings.ToLower(a.LastName), strings.ToLower(b.LastName); la != lb {
			return la < lb
		}
		return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
	})
}
