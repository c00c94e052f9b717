// Package sanitize cleans free-text labels typed by buyers and suppliers
// before they are stored and echoed in notifications.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags, decodes entities and strips again so encoded
// tags do not survive.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(html.UnescapeString(s), "")
	return strings.TrimSpace(s)
}

// Text cleans a single-line label such as a brand or a company name.
func Text(s string) string {
	return spacePattern.ReplaceAllString(StripHTML(s), " ")
}

// Texts applies Text and drops values left empty.
func Texts(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := Text(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
