// =============================================================================
// SDSVG Book - XML Writer Module
// =============================================================================
//
// This module renders the member book as an XML document for archival and
// for exchange with other systems.
//
// XML STRUCTURE:
//
//   <memberBook groups="2" members="3">          <!-- Root element -->
//     <group n="1" name="Patel Family" rows="2"> <!-- Groups in book order -->
//       <address>12 Lake Road
//   Ahmedabad</address>
//       <member n="1" flag="P" label="Parent">   <!-- Members in sort order -->
//         <name>Patel Mr Ramesh K</name>
//         <lastName>Patel</lastName>
//         <dob iso="1969-01-01">1-Jan-1969</dob>
//       </member>
//       <member n="2" flag="S" label="Child">
//         ...
//       </member>
//     </group>
//     <group n="2" name="Shah Family" rows="1">
//       <member n="3">                           <!-- Global numbering -->
//         ...
//       </member>
//     </group>
//   </memberBook>
//
// Empty member fields are omitted.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/sdsvg/sdsvg-book/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// MemberNumberingGlobal numbers members 1, 2, 3... across all groups.
	// When false numbering restarts at 1 in each group.
	// Default: true
	MemberNumberingGlobal bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		MemberNumberingGlobal: true,
	}
}

// =============================================================================
// XML DOCUMENT STRUCTURE
// =============================================================================

type bookElement struct {
	XMLName xml.Name       `xml:"memberBook"`
	Groups  int            `xml:"groups,attr"`
	Members int            `xml:"members,attr"`
	Items   []groupElement `xml:"group"`
}

type groupElement struct {
	N       int             `xml:"n,attr"`
	Name    string          `xml:"name,attr"`
	Rows    int             `xml:"rows,attr"`
	Address string          `xml:"address,omitempty"`
	Members []memberElement `xml:"member"`
}

type memberElement struct {
	N            int         `xml:"n,attr"`
	Flag         string      `xml:"flag,attr,omitempty"`
	Label        string      `xml:"label,attr,omitempty"`
	Name         string      `xml:"name,omitempty"`
	LastName     string      `xml:"lastName,omitempty"`
	Title        string      `xml:"title,omitempty"`
	FirstName    string      `xml:"firstName,omitempty"`
	MiddleName   string      `xml:"middleName,omitempty"`
	Gender       string      `xml:"gender,omitempty"`
	Relationship string      `xml:"relationship,omitempty"`
	DOB          *dobElement `xml:"dob,omitempty"`
	Education    string      `xml:"education,omitempty"`
	Mobile       string      `xml:"mobile,omitempty"`
	Email        string      `xml:"email,omitempty"`
	Address      string      `xml:"address,omitempty"`
}

type dobElement struct {
	ISO     string `xml:"iso,attr,omitempty"`
	Display string `xml:",chardata"`
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders groups with the default options.
func Generate(groups []types.Group) ([]byte, error) {
	return GenerateWithOptions(groups, DefaultGenerateOptions())
}

// GenerateWithOptions renders groups as an XML document.
func GenerateWithOptions(groups []types.Group, options GenerateOptions) ([]byte, error) {
	doc := buildDocument(groups, options)

	var buf bytes.Buffer
	if options.IncludeXMLDeclaration {
		buf.WriteString(xml.Header)
	}

	enc := xml.NewEncoder(&buf)
	enc.Indent("", options.Indent)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode XML: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// buildDocument maps groups onto the XML element tree.
func buildDocument(groups []types.Group, options GenerateOptions) *bookElement {
	doc := &bookElement{
		Groups: len(groups),
		Items:  make([]groupElement, 0, len(groups)),
	}

	memberIndex := 0
	for gi, g := range groups {
		if !options.MemberNumberingGlobal {
			memberIndex = 0
		}

		ge := groupElement{
			N:       gi + 1,
			Name:    g.Name,
			Rows:    g.RowCount,
			Address: g.Address,
			Members: make([]memberElement, 0, len(g.Rows)),
		}
		for _, m := range g.Rows {
			memberIndex++
			ge.Members = append(ge.Members, buildMemberElement(m, memberIndex))
		}

		doc.Members += len(g.Rows)
		doc.Items = append(doc.Items, ge)
	}

	return doc
}

func buildMemberElement(m types.MemberRecord, n int) memberElement {
	me := memberElement{
		N:            n,
		Flag:         m.OrderFlag,
		Label:        m.FlagLabel(),
		Name:         m.MemberName,
		LastName:     m.LastName,
		Title:        m.Title,
		FirstName:    m.FirstName,
		MiddleName:   m.MiddleName,
		Gender:       m.Gender,
		Relationship: m.Relationship,
		Education:    m.Education,
		Mobile:       m.Mobile,
		Email:        m.Email,
		Address:      m.Address,
	}
	if m.DOBDisplay != "" || m.DOBISO != "" {
		me.DOB = &dobElement{ISO: m.DOBISO, Display: m.DOBDisplay}
	}
	return me
}
