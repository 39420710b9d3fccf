package converter

import (
	"sync"
	"testing"

	"github.com/sdsvg/sdsvg-book/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformer_Actions(t *testing.T) {
	tests := []struct {
		name   string
		action config.TransformationAction
		in     string
		want   string
	}{
		{"trim", config.TransformationAction{Type: "trim"}, "  x ", "x"},
		{"uppercase", config.TransformationAction{Type: "uppercase"}, "shah", "SHAH"},
		{"lowercase", config.TransformationAction{Type: "lowercase"}, "A@B.COM", "a@b.com"},
		{"title_case", config.TransformationAction{Type: "title_case"}, "SHAH pooja", "Shah Pooja"},
		{"prepend", config.TransformationAction{Type: "prepend_string", Value: "+91 "}, "98250", "+91 98250"},
		{"prepend skips empty", config.TransformationAction{Type: "prepend_string", Value: "+91 "}, "", ""},
		{"append", config.TransformationAction{Type: "append_string", Value: "."}, "Dr", "Dr."},
		{"replace", config.TransformationAction{Type: "replace", Find: "-", Value: ""}, "98-25-0", "98250"},
		{"regex_replace", config.TransformationAction{Type: "regex_replace", Find: `^0+`, Value: ""}, "0098", "98"},
		{"normalize_whitespace", config.TransformationAction{Type: "normalize_whitespace"}, " B.  Com \t", "B. Com"},
		{"remove_special_chars", config.TransformationAction{Type: "remove_special_chars"}, "M.Sc (IT)", "MSc IT"},
		{"extract_digits", config.TransformationAction{Type: "extract_digits"}, "+91 98250-12345", "919825012345"},
		{"lookup hit", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"M": "Male"}}, "M", "Male"},
		{"lookup miss", config.TransformationAction{Type: "lookup", LookupTable: map[string]string{"M": "Male"}}, "X", "X"},
		{"lookup default", config.TransformationAction{Type: "lookup_with_default", Value: "Other", LookupTable: map[string]string{"M": "Male"}}, "X", "Other"},
		{"if empty default", config.TransformationAction{Type: "if_empty_use_default", Value: "N/A"}, " ", "N/A"},
		{"if empty keeps value", config.TransformationAction{Type: "if_empty_use_default", Value: "N/A"}, "x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransformer([]config.TransformationRule{{Field: "Education", Actions: []config.TransformationAction{tt.action}}})
			require.NoError(t, err)

			fields := map[string]string{"education": tt.in}
			tr.Apply(fields)
			assert.Equal(t, tt.want, fields["education"])
		})
	}
}

func TestTransformer_IfEmptyUseField(t *testing.T) {
	tr, err := NewTransformer([]config.TransformationRule{{
		Field:   "group",
		Actions: []config.TransformationAction{{Type: "if_empty_use_field", Value: "Last Name"}},
	}})
	require.NoError(t, err)

	fields := map[string]string{"group": "", "last name": "Patel"}
	tr.Apply(fields)
	assert.Equal(t, "Patel", fields["group"])
}

func TestTransformer_ChainsInOrder(t *testing.T) {
	tr, err := NewTransformer([]config.TransformationRule{{
		Field: "mobile",
		Actions: []config.TransformationAction{
			{Type: "extract_digits"},
			{Type: "regex_replace", Find: `^91`, Value: ""},
		},
	}})
	require.NoError(t, err)

	fields := map[string]string{"mobile": "+91 98250 12345"}
	tr.Apply(fields)
	assert.Equal(t, "9825012345", fields["mobile"])
}

func TestNewTransformer_Errors(t *testing.T) {
	_, err := NewTransformer([]config.TransformationRule{{Field: "email", Actions: []config.TransformationAction{{Type: "explode"}}}})
	assert.ErrorContains(t, err, "unknown transformation type")

	_, err = NewTransformer([]config.TransformationRule{{Field: "email", Actions: []config.TransformationAction{{Type: "regex_replace", Find: "("}}}})
	assert.ErrorContains(t, err, "invalid regex")

	_, err = NewTransformer([]config.TransformationRule{{Field: "DOB", Actions: []config.TransformationAction{{Type: "trim"}}}})
	assert.Error(t, err)
}

func TestTransformer_NilIsNoop(t *testing.T) {
	var tr *Transformer
	assert.True(t, tr.Empty())

	fields := map[string]string{"email": "x"}
	tr.Apply(fields)
	assert.Equal(t, "x", fields["email"])
}

func TestTransformer_TitleCaseConcurrent(t *testing.T) {
	tr, err := NewTransformer([]config.TransformationRule{{
		Field:   "first name",
		Actions: []config.TransformationAction{{Type: "title_case"}},
	}})
	require.NoError(t, err)

	const workers = 8

	var wg sync.WaitGroup
	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				fields := map[string]string{"first name": "pooja MEHTA"}
				tr.Apply(fields)
				results[i] = fields["first name"]
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, "Pooja Mehta", got)
	}
}
