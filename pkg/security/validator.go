package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSearchQueryLength defines the maximum allowed length for search queries, in characters
	MaxSearchQueryLength = 100
)

var (
	// ErrQueryTooLong is returned when a search query exceeds MaxSearchQueryLength.
	ErrQueryTooLong = errors.New("search query too long")
	// ErrQueryInvalidChars is returned when a search query contains characters outside the allowlist.
	ErrQueryInvalidChars = errors.New("search query contains invalid characters")
)

// commentPattern matches SQL comment openers that are never part of a name or email.
var commentPattern = regexp.MustCompile(`(--|/\*|\*/)`)

// ValidateSearchQuery trims query and checks it against the search allowlist.
// The returned string is safe to embed in a LIKE pattern or regex once escaped
// with EscapeLike or EscapeRegex.
func ValidateSearchQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	if utf8.RuneCountInString(query) > MaxSearchQueryLength {
		return "", ErrQueryTooLong
	}

	if commentPattern.MatchString(query) {
		return "", ErrQueryInvalidChars
	}

	for _, char := range query {
		if !isValidSearchChar(char) {
			return "", ErrQueryInvalidChars
		}
	}

	return query, nil
}

// isValidSearchChar checks if a character may appear in names or email addresses
func isValidSearchChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == ' ' || char == '-' || char == '_' || char == '.' ||
		char == '@' || char == '+' || char == '\'' || char == '%'
}

// EscapeLike escapes LIKE wildcards so the query matches literally. The escape character is '\'.
func EscapeLike(query string) string {
	if query == "" {
		return ""
	}

	query = strings.ReplaceAll(query, `\`, `\\`)
	query = strings.ReplaceAll(query, "%", `\%`)
	query = strings.ReplaceAll(query, "_", `\_`)

	return query
}

// EscapeRegex quotes every regex metacharacter so the query matches literally.
func EscapeRegex(query string) string {
	return regexp.QuoteMeta(query)
}
