package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeString removes potentially dangerous characters and escapes HTML
func SanitizeString(input string) string {
	trimmed := strings.TrimSpace(input)

	return html.EscapeString(trimmed)
}

// SanitizeCriteria cleans a device search term before it reaches the directory.
// Tags and control characters are removed but quoting is left intact, since the
// directory client does its own escaping.
func SanitizeCriteria(criteria string) string {
	criteria = strings.TrimSpace(criteria)
	criteria = stripHTML(criteria)
	criteria = removeControlChars(criteria)

	return strings.TrimSpace(criteria)
}

// SanitizeText sanitizes multi-line text input
func SanitizeText(input string) string {
	trimmed := strings.TrimSpace(input)

	// Remove any control characters except newlines and tabs
	var result strings.Builder
	for _, r := range stripHTML(trimmed) {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// stripHTML removes HTML tags from string
func stripHTML(input string) string {
	return htmlTagPattern.ReplaceAllString(input, "")
}

// removeControlChars removes control characters from string
func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || r == ' ' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
