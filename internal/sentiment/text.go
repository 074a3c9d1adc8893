package sentiment

import (
	"strings"
	"unicode"
)

// tokenize lower-cases text and splits it into words. Anything that is not a
// letter or a combining mark separates words, so punctuation never sticks to
// a keyword.
func tokenize(text string) []string {
	text = strings.ToLower(strings.ToValidUTF8(text, " "))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r)
	})
}

// wordSet builds a lookup set from a word list.
func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// arabicArticle is the definite article glued to Arabic nouns.
const arabicArticle = "ال"

// lookupForms yields the forms of a token worth matching against a word list.
// Arabic nouns usually carry the definite article, so the bare stem is tried too.
func lookupForms(token string) []string {
	if strings.HasPrefix(token, arabicArticle) && len([]rune(token)) > 3 {
		return []string{token, strings.TrimPrefix(token, arabicArticle)}
	}
	return []string{token}
}

// countMatches counts tokens found in set, trying each token's lookup forms.
func countMatches(tokens []string, set map[string]struct{}) int {
	n := 0
	for _, tok := range tokens {
		for _, form := range lookupForms(tok) {
			if _, ok := set[form]; ok {
				n++
				break
			}
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
