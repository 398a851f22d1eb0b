// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen matches the editor's post_name column limit.
const maxSlugLen = 200

var (
	wordSeparatorRe   = regexp.MustCompile(`[\s_/.]+`)
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	multipleDashRe    = regexp.MustCompile(`-+`)
)

// foldAccents strips combining marks after canonical decomposition, so
// "é" becomes "e" rather than being dropped.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slugify converts a title or user-supplied slug to the URL slug form:
// lowercase ASCII letters, digits and single dashes.
//
//	"Hello, World"         → "hello-world"
//	"Café & Résumé tips"   → "cafe-resume-tips"
//	"2024/05 round_up"     → "2024-05-round-up"
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(foldAccents(input)))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}
