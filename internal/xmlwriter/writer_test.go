package xmlwriter

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book() []types.Group {
	return []types.Group{
		{
			Name:    "Patel Family",
			Address: "12 Lake Road\nAhmedabad",
			Rows: []types.MemberRecord{
				{LastName: "Patel", FirstName: "Ramesh", MemberName: "Patel Ramesh", OrderFlag: "P", DOBDisplay: "1-Jan-1969", DOBISO: "1969-01-01"},
				{LastName: "Patel", FirstName: "Anil", MemberName: "Patel Anil", OrderFlag: "S", DOBDisplay: "sometime"},
			},
			RowCount: 2,
		},
		{
			Name:     "Shah & Sons",
			Rows:     []types.MemberRecord{{LastName: "Shah", MemberName: "Shah", Email: "a<b>@example.com"}},
			RowCount: 1,
		},
	}
}

func TestGenerate_Structure(t *testing.T) {
	out, err := Generate(book())
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, `<memberBook groups="2" members="3">`)
	assert.Contains(t, s, `<group n="1" name="Patel Family" rows="2">`)
	assert.Contains(t, s, `<member n="1" flag="P" label="Parent">`)
	assert.Contains(t, s, `<dob iso="1969-01-01">1-Jan-1969</dob>`)
	assert.Contains(t, s, `<dob>sometime</dob>`)
	assert.Contains(t, s, `<group n="2" name="Shah &amp; Sons" rows="1">`)
	assert.Contains(t, s, `<member n="3">`)
	assert.Contains(t, s, `<email>a&lt;b&gt;@example.com</email>`)
	assert.NotContains(t, s, "<title>")
}

func TestGenerate_RoundTripsThroughDecoder(t *testing.T) {
	out, err := Generate(book())
	require.NoError(t, err)

	var doc bookElement
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "12 Lake Road\nAhmedabad", doc.Items[0].Address)
	assert.Equal(t, "Child", doc.Items[0].Members[1].Label)
}

func TestGenerateWithOptions_PerGroupNumbering(t *testing.T) {
	opts := DefaultGenerateOptions()
	opts.MemberNumberingGlobal = false
	opts.IncludeXMLDeclaration = false

	out, err := GenerateWithOptions(book(), opts)
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "<memberBook"))
	assert.Equal(t, 2, strings.Count(s, `<member n="1"`))
}

func TestGenerate_Empty(t *testing.T) {
	out, err := Generate(nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<memberBook groups="0" members="0"></memberBook>`)
}
