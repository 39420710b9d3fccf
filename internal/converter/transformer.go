// =============================================================================
// SDSVG Book - Field Rules Engine
// =============================================================================
//
// This module applies the optional field_rules from the configuration to a
// member row after cell normalization and before any derivation (group
// default, order flag, member name). Rules are keyed by normalized column
// label and run in the order they are configured.
//
// TRANSFORMATION TYPES:
//   - Case conversions (uppercase, lowercase, title_case)
//   - String manipulations (trim, prepend, append, replace, regex_replace)
//   - Clean-ups (normalize_whitespace, remove_special_chars, extract_digits)
//   - Lookup table replacements (lookup, lookup_with_default)
//   - Empty-value fallbacks (if_empty_use_default, if_empty_use_field)
//
// Rules never touch the dob column: dates go through the date normalizer
// on the raw cell.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/sdsvg/sdsvg-book/internal/validation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	specialPattern    = regexp.MustCompile(`[^\p{L}\p{N} ]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies configured field rules to a row of member fields.
type Transformer struct {
	rules []compiledRule
}

type compiledRule struct {
	field   string
	actions []compiledAction
}

type compiledAction struct {
	config.TransformationAction
	pattern *regexp.Regexp
}

// NewTransformer compiles the given rules. Unknown action types and invalid
// patterns are reported here rather than on the first row.
func NewTransformer(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{rules: make([]compiledRule, 0, len(rules))}

	for _, rule := range rules {
		field := validation.NormalizeHeader(rule.Field)
		if field == validation.ColumnDOB {
			return nil, fmt.Errorf("field rule for %q: dates cannot be transformed", rule.Field)
		}

		compiled := compiledRule{field: field}
		for _, action := range rule.Actions {
			ca := compiledAction{TransformationAction: action}
			if !knownAction(action.Type) {
				return nil, fmt.Errorf("field rule for %q: unknown transformation type: %s", rule.Field, action.Type)
			}
			if action.Type == "regex_replace" && action.Find != "" {
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("field rule for %q: invalid regex pattern: %w", rule.Field, err)
				}
				ca.pattern = re
			}
			compiled.actions = append(compiled.actions, ca)
		}
		t.rules = append(t.rules, compiled)
	}

	return t, nil
}

// Empty reports whether there is nothing to apply.
func (t *Transformer) Empty() bool {
	return t == nil || len(t.rules) == 0
}

// Apply runs every rule over fields in place. Fields absent from the map
// are treated as empty and created when a rule produces a value.
func (t *Transformer) Apply(fields map[string]string) {
	if t.Empty() {
		return
	}
	for _, rule := range t.rules {
		value := fields[rule.field]
		for _, action := range rule.actions {
			value = action.apply(value, fields)
		}
		fields[rule.field] = value
	}
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

func knownAction(actionType string) bool {
	switch actionType {
	case "trim", "uppercase", "lowercase", "title_case",
		"prepend_string", "append_string", "replace", "regex_replace",
		"normalize_whitespace", "remove_special_chars", "extract_digits",
		"lookup", "lookup_with_default", "if_empty_use_default", "if_empty_use_field":
		return true
	}
	return false
}

func (a compiledAction) apply(value string, allFields map[string]string) string {
	switch a.Type {
	case "trim":
		return strings.TrimSpace(value)

	case "uppercase":
		return strings.ToUpper(value)

	case "lowercase":
		return strings.ToLower(value)

	case "title_case":
		// "SHAH pooja" -> "Shah Pooja"
		return cases.Title(language.English).String(value)

	case "prepend_string":
		if value == "" {
			return value
		}
		return a.Value + value

	case "append_string":
		if value == "" {
			return value
		}
		return value + a.Value

	case "replace":
		if a.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, a.Find, a.Value)

	case "regex_replace":
		if a.pattern == nil {
			return value
		}
		return a.pattern.ReplaceAllString(value, a.Value)

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))

	case "remove_special_chars":
		return specialPattern.ReplaceAllString(value, "")

	case "extract_digits":
		// "+91 98250-12345" -> "919825012345"
		return strings.Join(digitsPattern.FindAllString(value, -1), "")

	case "lookup":
		if replacement, ok := a.LookupTable[value]; ok {
			return replacement
		}
		return value

	case "lookup_with_default":
		if replacement, ok := a.LookupTable[value]; ok {
			return replacement
		}
		return a.Value

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return a.Value
		}
		return value

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			return allFields[validation.NormalizeHeader(a.Value)]
		}
		return value
	}
	return value
}
