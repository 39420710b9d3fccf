package converter

import (
	"errors"
	"testing"

	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(group, flag, last, first string) types.MemberRecord {
	return types.MemberRecord{GroupLabel: group, OrderFlag: flag, LastName: last, FirstName: first}
}

func names(rows []types.MemberRecord) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.OrderFlag + ":" + r.LastName + "," + r.FirstName
	}
	return out
}

func TestSortMembers_PrimaryFirstThenNames(t *testing.T) {
	rows := []types.MemberRecord{
		member("g", "P", "Zed", ""),
		member("g", "S", "Ann", ""),
		member("g", "P", "Ann", ""),
	}

	SortMembers(rows)

	assert.Equal(t, []string{"P:Ann,", "P:Zed,", "S:Ann,"}, names(rows))
}

func TestSortMembers_TwoTiers(t *testing.T) {
	rows := []types.MemberRecord{
		member("g", "S", "Brown", "Amy"),
		member("g", "", "Adams", "Zoe"),
		member("g", "S", "adams", "bob"),
	}

	SortMembers(rows)

	// "S" and "" share a tier: only names decide.
	assert.Equal(t, []string{"S:adams,bob", ":Adams,Zoe", "S:Brown,Amy"}, names(rows))
}

func TestSortMembers_StableOnTies(t *testing.T) {
	rows := []types.MemberRecord{
		{LastName: "Shah", FirstName: "Raj", SourceRow: 2},
		{LastName: "SHAH", FirstName: "raj", SourceRow: 3},
		{LastName: "shah", FirstName: "RAJ", SourceRow: 4},
	}

	SortMembers(rows)

	assert.Equal(t, 2, rows[0].SourceRow)
	assert.Equal(t, 3, rows[1].SourceRow)
	assert.Equal(t, 4, rows[2].SourceRow)
}

func TestSortMembers_FlaggedBeatsEarlierSurname(t *testing.T) {
	rows := []types.MemberRecord{
		member("g", "", "Adams", "Amy"),
		member("g", "P", "Young", "Yash"),
	}

	SortMembers(rows)

	assert.Equal(t, "Young", rows[0].LastName)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 0, Priority("P"))
	assert.Equal(t, 1, Priority("S"))
	assert.Equal(t, 1, Priority(""))
}

func TestGroupRecords_FirstSeenOrderAndAddressBackfill(t *testing.T) {
	records := []types.MemberRecord{
		{GroupLabel: "Patel", LastName: "Patel", FirstName: "Nita"},
		{GroupLabel: "Shah", LastName: "Shah", FirstName: "Raj", Address: "5 Hill St"},
		{GroupLabel: "Patel", LastName: "Patel", FirstName: "Anil", Address: "12 Lake Rd"},
		{GroupLabel: "Patel", LastName: "Patel", FirstName: "Mira", Address: "Other"},
	}

	groups, err := GroupRecords(records)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "Patel", groups[0].Name)
	assert.Equal(t, "12 Lake Rd", groups[0].Address)
	assert.Equal(t, 3, groups[0].RowCount)
	assert.Len(t, groups[0].Rows, 3)
	for _, r := range groups[0].Rows {
		assert.Equal(t, "12 Lake Rd", r.GroupAddress)
	}

	assert.Equal(t, "Shah", groups[1].Name)
	assert.Equal(t, "5 Hill St", groups[1].Address)
	assert.Equal(t, 1, groups[1].RowCount)
}

func TestGroupRecords_BlankLabelIsUngrouped(t *testing.T) {
	groups, err := GroupRecords([]types.MemberRecord{{LastName: "Doe"}})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, DefaultGroup, groups[0].Name)
	assert.Equal(t, DefaultGroup, groups[0].Rows[0].GroupLabel)
}

func TestGroupRecords_Empty(t *testing.T) {
	_, err := GroupRecords(nil)
	assert.True(t, errors.Is(err, ErrNoMemberRows))
}

func TestBucketOrdered_PrefersStoredGroupAddress(t *testing.T) {
	records := []types.MemberRecord{
		{GroupLabel: "Patel", LastName: "A", Address: "own address"},
		{GroupLabel: "Patel", LastName: "B", GroupAddress: "group address"},
	}

	groups := BucketOrdered(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "own address", groups[0].Address)

	groups = BucketOrdered([]types.MemberRecord{
		{GroupLabel: "Patel", LastName: "A", Address: "own address", GroupAddress: "group address"},
	})
	assert.Equal(t, "group address", groups[0].Address)
	assert.Equal(t, "A", groups[0].Rows[0].LastName)
}
