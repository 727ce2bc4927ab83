package security

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		expectError error
		expected    string
	}{
		{
			name:     "valid empty query",
			query:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			query:    "   ",
			expected: "",
		},
		{
			name:     "valid simple query",
			query:    "john",
			expected: "john",
		},
		{
			name:     "trims surrounding spaces",
			query:    "  john doe ",
			expected: "john doe",
		},
		{
			name:     "valid email-like query",
			query:    "john.doe+test@example.com",
			expected: "john.doe+test@example.com",
		},
		{
			name:     "apostrophe in name",
			query:    "O'Brien",
			expected: "O'Brien",
		},
		{
			name:     "names containing sql keywords",
			query:    "Walter Alexander",
			expected: "Walter Alexander",
		},
		{
			name:     "unicode letters",
			query:    "José Müller",
			expected: "José Müller",
		},
		{
			name:     "max length in runes",
			query:    strings.Repeat("é", MaxSearchQueryLength),
			expected: strings.Repeat("é", MaxSearchQueryLength),
		},
		{
			name:        "query too long",
			query:       strings.Repeat("a", MaxSearchQueryLength+1),
			expectError: ErrQueryTooLong,
		},
		{
			name:        "sql comment",
			query:       "john --",
			expectError: ErrQueryInvalidChars,
		},
		{
			name:        "statement separator",
			query:       "john; DROP TABLE users",
			expectError: ErrQueryInvalidChars,
		},
		{
			name:        "mongo operator",
			query:       `{"$gt": ""}`,
			expectError: ErrQueryInvalidChars,
		},
		{
			name:        "markup",
			query:       "<script>alert('xss')</script>",
			expectError: ErrQueryInvalidChars,
		},
		{
			name:        "regex metacharacters",
			query:       "john.*(",
			expectError: ErrQueryInvalidChars,
		},
		{
			name:        "ampersand",
			query:       "john&doe",
			expectError: ErrQueryInvalidChars,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSearchQuery(tt.query)
			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"john", "john"},
		{"50%", `50\%`},
		{"jane_doe", `jane\_doe`},
		{`back\slash`, `back\\slash`},
		{"a%b_c", `a\%b\_c`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeLike(tt.in), "input %q", tt.in)
	}
}

func TestEscapeRegex(t *testing.T) {
	escaped := EscapeRegex("john.doe+test@example.com")
	re := regexp.MustCompile("(?i)" + escaped)

	assert.True(t, re.MatchString("JOHN.DOE+TEST@EXAMPLE.COM"))
	assert.False(t, re.MatchString("johnXdoe+test@example.com"))
}

func TestIsValidSearchChar(t *testing.T) {
	for _, c := range "aZ09 -_.@+'%é" {
		assert.True(t, isValidSearchChar(c), "char %q", c)
	}
	for _, c := range "$;{}<>&|()[]*\\\"" {
		assert.False(t, isValidSearchChar(c), "char %q", c)
	}
}
