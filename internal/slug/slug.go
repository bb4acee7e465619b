// Package slug derives URL-safe group identifiers from display names.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes characters and strips combining marks, mapping
// accented letters to their closest ASCII equivalent.
var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts a proposed group name into a slug candidate: spaces
// become hyphens, accented characters are transliterated, everything outside
// [a-z0-9_-] is discarded, and the result is lowercased. The result may be
// empty for names with no representable characters.
func Normalize(name string) string {
	s := strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	if out, _, errTransform := transform.String(deaccent, s); errTransform == nil {
		s = out
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Choose returns candidate if it does not collide with any existing slug,
// otherwise candidate with the smallest positive integer suffix not yet in
// use. existing is the set of slugs sharing the candidate as a substring
// within the same group kind.
func Choose(candidate string, existing []string) string {
	if len(existing) == 0 {
		return candidate
	}
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[candidate]; !ok {
		return candidate
	}
	for i := 1; ; i++ {
		next := candidate + strconv.Itoa(i)
		if _, ok := taken[next]; !ok {
			return next
		}
	}
}
