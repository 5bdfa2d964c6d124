// Package slug turns article titles into filesystem-safe folder names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxLen caps slug length so deep storage paths stay portable.
const maxLen = 200

var (
	invalidChars = regexp.MustCompile("[^a-z0-9_]+")
	repeatedSep  = regexp.MustCompile("_+")
)

// Generate creates a filesystem-safe name from a string. Unicode letters
// are transliterated to ASCII, everything non-alphanumeric becomes an
// underscore, and the result is capped at 200 characters.
func Generate(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = transliterate(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = invalidChars.ReplaceAllString(s, "_")
	s = repeatedSep.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	if len(s) > maxLen {
		s = s[:maxLen]
		s = strings.TrimRight(s, "_")
	}
	return s
}

// GenerateWithFallback generates a slug, using fallback when the input
// produces an empty slug.
func GenerateWithFallback(s, fallback string) string {
	if slug := Generate(s); slug != "" {
		return slug
	}
	return Generate(fallback)
}

// transliterate converts unicode characters to ASCII equivalents by
// stripping combining marks.
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
