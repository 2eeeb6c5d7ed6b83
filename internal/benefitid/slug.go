// internal/benefitid/slug.go
package benefitid

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s, folds accents to ASCII, drops punctuation and joins
// words with single dashes: "Café Crédit (Annual)" → "cafe-credit-annual".
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			if dash {
				b.WriteByte('-')
				dash = false
			}
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			dash = b.Len() > 0
		}
	}
	return strings.Trim(b.String(), "-_")
}
