package similarity

import (
	"strings"
	"unicode"
)

// Tokenize splits a field name on separators and camelCase boundaries and
// lower-cases the parts: "billingStreet_2" -> [billing street 2].
func Tokenize(s string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	rs := []rune(s)
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := rs[i-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				flush()
			case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
				// "HTTPServer": the S starts a new word.
				flush()
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

// TokenOverlap returns the share of distinct tokens the two names have in
// common, relative to the name with more tokens.
func TokenOverlap(a, b string) float64 {
	shared, ta, tb := sharedTokens(a, b)
	longest := max(ta, tb)
	if longest == 0 {
		return 0
	}
	return float64(shared) / float64(longest)
}

// SharesToken reports whether the two names have at least one token in common.
func SharesToken(a, b string) bool {
	shared, _, _ := sharedTokens(a, b)
	return shared > 0
}

func sharedTokens(a, b string) (shared, countA, countB int) {
	setA := tokenSet(a)
	setB := tokenSet(b)
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared++
		}
	}
	return shared, len(setA), len(setB)
}

func tokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
