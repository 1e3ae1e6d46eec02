package keyword

import (
	"regexp"
	"strings"
	"unicode"
)

// wordTokens splits lowercased text on anything that is not an ASCII letter
// or digit and keeps tokens of two or more characters containing a letter.
func wordTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || !hasLetter(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// ngramToken matches the tokens used for semantic n-grams: two or more
// letters, digits, hyphens, or Hangul syllables.
var ngramToken = regexp.MustCompile(`[a-z0-9\x{AC00}-\x{D7A3}\-]{2,}`)

// ngrams yields every 1..maxN gram of text's tokens, grouped by n.
func ngrams(text string, maxN int, yield func(string) bool) bool {
	ws := ngramToken.FindAllString(strings.ToLower(text), -1)
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(ws); i++ {
			if !yield(strings.Join(ws[i:i+n], " ")) {
				return false
			}
		}
	}
	return true
}
