package sqlsafe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"users", `"users"`},
		{`a"b`, `"a""b"`},
		{`"; DROP TABLE x--`, `"""; DROP TABLE x--"`},
		{"", `""`},
		{"with space", `"with space"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteIdent(tt.in))
	}
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, `"analytics"."users"`, QuoteQualified("analytics", "users"))
	assert.Equal(t, `"users"`, QuoteQualified("", "users"))
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"it's; DROP TABLE x--", "'it''s; DROP TABLE x--'"},
		{`back\slash`, `'back\slash'`},
		{"line\nbreak", "'line\nbreak'"},
		{"", "''"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QuoteLiteral(tt.in))
	}
}

// A quoted literal must never close its own quote early: after stripping the
// doubled quotes, the body may not contain a lone single quote.
func TestQuoteLiteral_NoEarlyTermination(t *testing.T) {
	hostile := "it's; DROP TABLE x--"
	quoted := QuoteLiteral(hostile)

	body := quoted[1 : len(quoted)-1]
	assert.NotContains(t, strings.ReplaceAll(body, "''", ""), "'")
}

func TestRenderOptionValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"bool true", true, "TRUE"},
		{"bool false", false, "FALSE"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 1.5, "1.5"},
		{"string", "path", "'path'"},
		{"string with quote", "o'clock", "'o''clock'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderOptionValue("k", tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderOptionValue_RejectsStructuredTypes(t *testing.T) {
	for _, v := range []any{[]int{1, 2, 3}, map[string]any{"a": 1}, nil, struct{}{}} {
		_, err := RenderOptionValue("url_style", v)
		require.Error(t, err)

		var typeErr *OptionTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, "url_style", typeErr.Key)
	}
}
