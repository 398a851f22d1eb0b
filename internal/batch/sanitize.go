package batch

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	anySpace        = regexp.MustCompile(`\s+`)
)

// stripTags returns the text content of s with markup removed and entities
// decoded. Text that is not markup passes through unchanged.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// sanitizeLine prepares a single-line field: tags stripped, all whitespace
// collapsed to single spaces.
func sanitizeLine(s string) string {
	return strings.TrimSpace(anySpace.ReplaceAllString(stripTags(s), " "))
}

// sanitizeText prepares a multi-line field: tags stripped, line breaks kept,
// runs of other whitespace collapsed.
func sanitizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(stripTags(s), "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
