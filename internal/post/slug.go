package post

import (
	"strings"
	"unicode"
)

// DeriveSlug maps a title to its canonical slug: lowercased, runs of
// whitespace collapsed to a single underscore, every other character outside
// [a-z0-9_-] dropped. The same transform is applied on create and on a title
// patch; there is no automatic suffixing on collision.
func DeriveSlug(title string) string {
	var b strings.Builder
	sep := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
			sep = false
		case unicode.IsSpace(r):
			if !sep {
				b.WriteByte('_')
				sep = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
