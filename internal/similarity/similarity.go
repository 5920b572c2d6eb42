// Package similarity scores how alike two field names are.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ConceptThreshold is the minimum Similarity at which two normalized names
// are treated as the same concept.
const ConceptThreshold = 0.8

// auxPrefixes qualify a field without changing its concept (primary_email, homePhone).
var auxPrefixes = []string{
	"primary", "secondary", "alternate", "alt", "main", "other",
	"home", "work", "business", "personal", "mobile",
	"billing", "shipping", "mailing",
	"contact", "account", "customer", "cust",
}

// commonSuffixes describe a field's representation rather than its concept.
var commonSuffixes = []string{
	"number", "value", "count", "date", "name", "type", "code", "num", "id", "no",
}

// Similarity returns a normalized edit-distance score in [0, 1]. Comparison
// is case-insensitive; 1.0 means identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	longest := max(utf8.RuneCountInString(la), utf8.RuneCountInString(lb))
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(la, lb)
	return 1 - float64(d)/float64(longest)
}

// ConceptuallySimilar reports whether two field names describe the same
// concept once qualifiers, separators and representation suffixes are removed.
func ConceptuallySimilar(a, b string) bool {
	na, nb := conceptKey(a), conceptKey(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return Similarity(na, nb) >= ConceptThreshold
}

// conceptKey strips one auxiliary prefix, all separators and one common suffix.
func conceptKey(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range auxPrefixes {
		if len(lower) > len(p) && strings.HasPrefix(lower, p) && isBoundary(s, len(p)) {
			s = s[len(p):]
			break
		}
	}

	s = strings.ToLower(stripSeparators(s))

	for _, suf := range commonSuffixes {
		if len(s) > len(suf) && strings.HasSuffix(s, suf) {
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	return s
}

// isBoundary reports whether position i of s starts a new word: a separator
// or an upper-case letter following the prefix.
func isBoundary(s string, i int) bool {
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isSeparator(r) || unicode.IsUpper(r)
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || r == ' '
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if isSeparator(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeKey folds diacritics, lower-cases and drops every character that
// is not a letter or digit ("Phone Number" -> "phonenumber").
func NormalizeKey(s string) string {
	folded, _, err := transform.String(foldChain(), s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// foldChain is rebuilt per call; transform.Chain values are stateful.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
