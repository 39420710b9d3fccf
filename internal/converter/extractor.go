package converter

import (
	"strings"

	"github.com/sdsvg/sdsvg-book/internal/normalize"
	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/sdsvg/sdsvg-book/internal/validation"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
)

// textColumns are copied into the record after cell normalization.
var textColumns = []string{
	validation.ColumnLastName,
	validation.ColumnTitle,
	validation.ColumnFirstName,
	validation.ColumnMiddleName,
	validation.ColumnGender,
	validation.ColumnRelationship,
	validation.ColumnEducation,
	validation.ColumnMobile,
	validation.ColumnEmail,
	validation.ColumnAddress,
	validation.ColumnGroup,
}

// Extractor turns data rows into member records for one header layout.
type Extractor struct {
	headers     validation.HeaderMap
	columns     []int
	flagAliases []string
	transformer *Transformer
}

// NewExtractor builds an extractor over resolved headers. transformer may
// be nil.
func NewExtractor(headers validation.HeaderMap, transformer *Transformer) *Extractor {
	return &Extractor{
		headers:     headers,
		columns:     headers.Columns(),
		flagAliases: headers.Present(validation.OrderFlagAliases...),
		transformer: transformer,
	}
}

// Extract converts every data row. firstRow is the 1-based sheet row of
// rows[0]. Rows with no content are skipped and counted.
func (e *Extractor) Extract(rows []xlsxparser.RawRow, firstRow int) (records []types.MemberRecord, skipped int) {
	records = make([]types.MemberRecord, 0, len(rows))
	for i, row := range rows {
		if !e.hasContent(row) {
			skipped++
			continue
		}
		rec := e.record(row)
		rec.SourceRow = firstRow + i
		records = append(records, rec)
	}
	return records, skipped
}

// hasContent reports whether any mapped column holds text or a number.
func (e *Extractor) hasContent(row xlsxparser.RawRow) bool {
	for _, col := range e.columns {
		if normalize.Value(row.At(col)) != "" {
			return true
		}
	}
	return false
}

func (e *Extractor) cell(row xlsxparser.RawRow, label string) xlsxparser.Cell {
	if i, ok := e.headers.Index(label); ok {
		return row.At(i)
	}
	return xlsxparser.Cell{}
}

func (e *Extractor) record(row xlsxparser.RawRow) types.MemberRecord {
	fields := make(map[string]string, len(textColumns)+len(e.flagAliases))
	for _, label := range textColumns {
		fields[label] = normalize.Value(e.cell(row, label))
	}
	for _, alias := range e.flagAliases {
		fields[alias] = normalize.Value(e.cell(row, alias))
	}
	e.transformer.Apply(fields)

	dob := e.cell(row, validation.ColumnDOB)

	rec := types.MemberRecord{
		LastName:     fields[validation.ColumnLastName],
		Title:        fields[validation.ColumnTitle],
		FirstName:    fields[validation.ColumnFirstName],
		MiddleName:   fields[validation.ColumnMiddleName],
		Gender:       fields[validation.ColumnGender],
		Relationship: fields[validation.ColumnRelationship],
		DOBDisplay:   normalize.DateDisplay(dob),
		DOBISO:       normalize.DateISO(dob),
		Education:    fields[validation.ColumnEducation],
		Mobile:       fields[validation.ColumnMobile],
		Email:        fields[validation.ColumnEmail],
		Address:      normalize.Address(fields[validation.ColumnAddress]),
		GroupLabel:   fields[validation.ColumnGroup],
	}
	if rec.GroupLabel == "" {
		rec.GroupLabel = DefaultGroup
	}
	rec.OrderFlag = resolveOrderFlag(fields, e.flagAliases)
	rec.MemberName = MemberName(rec.LastName, rec.Title, rec.FirstName, rec.MiddleName)
	return rec
}

// resolveOrderFlag takes the first non-empty alias column, then falls back
// to a primary relationship. Anything outside {P, S} becomes "".
func resolveOrderFlag(fields map[string]string, aliases []string) string {
	var flag string
	for _, alias := range aliases {
		if v := fields[alias]; v != "" {
			flag = v
			break
		}
	}
	if flag == "" {
		switch strings.ToUpper(fields[validation.ColumnRelationship]) {
		case "P", "PRIMARY":
			flag = types.FlagPrimary
		}
	}

	switch flag = strings.ToUpper(strings.TrimSpace(flag)); flag {
	case types.FlagPrimary, types.FlagSecondary:
		return flag
	default:
		return ""
	}
}

// MemberName joins the non-empty name parts with single spaces.
func MemberName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
