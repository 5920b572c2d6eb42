package mapping

import (
	"fmt"
	"strings"

	"github.com/sells-group/migrate-cli/internal/lexicon"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/similarity"
)

// Pattern stage confidence tiers.
const (
	confVariantExact      = 0.95
	confVariantNormalized = 0.9
	confConceptName       = 0.85
	confFuzzyBase         = 0.7
	confFuzzySpan         = 0.15
	confContainment       = 0.7

	fuzzyVariantThreshold = 0.7
	minContainmentLen     = 3
)

// ExactMatcher matches names that are equal ignoring case.
type ExactMatcher struct {
	Lexicon *lexicon.Lexicon
}

func (m *ExactMatcher) TryMatch(source string, destinations []string, objectType string) *model.MappingSuggestion {
	for _, d := range destinations {
		if !strings.EqualFold(source, d) {
			continue
		}
		required := false
		if m.Lexicon != nil {
			if c := m.Lexicon.Lookup(source, objectType); c != nil {
				required = c.Required
			}
		}
		return &model.MappingSuggestion{
			SourceField:      source,
			DestinationField: d,
			Confidence:       1.0,
			IsRequired:       required,
			Reason:           "Exact match",
			Stage:            model.StageExact,
		}
	}
	return nil
}

// PatternMatcher recognizes the source as a lexicon concept of the object
// type and picks the destination that best fits that concept.
type PatternMatcher struct {
	Lexicon *lexicon.Lexicon
}

func (m *PatternMatcher) TryMatch(source string, destinations []string, objectType string) *model.MappingSuggestion {
	if m.Lexicon == nil {
		return nil
	}
	concepts, ok := m.Lexicon.PatternSet(objectType)
	if !ok {
		return nil
	}

	key := similarity.NormalizeKey(source)
	if key == "" {
		return nil
	}
	var concept *lexicon.Concept
	for i := range concepts {
		if concepts[i].MatchesKey(key) {
			concept = &concepts[i]
			break
		}
	}
	if concept == nil {
		return nil
	}

	var (
		best     string
		bestConf float64
		bestWhy  string
	)
	for _, d := range destinations {
		conf, why := scoreConcept(concept, d)
		if conf > bestConf {
			best, bestConf, bestWhy = d, conf, why
		}
	}
	if bestConf == 0 {
		return nil
	}

	return &model.MappingSuggestion{
		SourceField:      source,
		DestinationField: best,
		Confidence:       bestConf,
		IsRequired:       concept.Required,
		Reason:           fmt.Sprintf("Pattern match: %s (%s)", concept.Name, bestWhy),
		Stage:            model.StagePattern,
	}
}

// scoreConcept rates how well dest names concept. Zero means no fit.
func scoreConcept(c *lexicon.Concept, dest string) (float64, string) {
	if c.HasVariant(dest) {
		return confVariantExact, "known variant"
	}
	dk := similarity.NormalizeKey(dest)
	if dk == "" {
		return 0, ""
	}
	if c.MatchesKey(dk) {
		return confVariantNormalized, "normalized variant"
	}
	if name := similarity.NormalizeKey(c.Name); name != "" && strings.Contains(dk, name) {
		return confConceptName, "contains concept name"
	}

	var best float64
	for _, k := range c.Keys() {
		if s := similarity.Similarity(k, dk); s >= fuzzyVariantThreshold {
			best = max(best, confFuzzyBase+s*confFuzzySpan)
		}
	}
	if best > 0 {
		return best, "similar to variant"
	}

	for _, k := range c.Keys() {
		if contains(dk, k) {
			return confContainment, "partial variant"
		}
	}
	return 0, ""
}

// contains reports whether either key contains the other; the shorter key
// must be at least minContainmentLen long.
func contains(a, b string) bool {
	if len(a) < len(b) {
		a, b = b, a
	}
	return len(b) >= minContainmentLen && strings.Contains(a, b)
}

// SimilarityMatcher is the fallback: it compares names by edit distance and
// shared word tokens.
type SimilarityMatcher struct{}

func (m *SimilarityMatcher) TryMatch(source string, destinations []string, _ string) *model.MappingSuggestion {
	sk := similarity.NormalizeKey(source)
	if sk == "" {
		return nil
	}

	var (
		best      string
		bestConf  float64
		bestScore float64
	)
	for _, d := range destinations {
		dk := similarity.NormalizeKey(d)
		if dk == "" {
			continue
		}
		score := max(similarity.Similarity(sk, dk), similarity.TokenOverlap(source, d))
		conf := similarityTier(score, similarity.SharesToken(source, d))
		if conf > bestConf || (conf == bestConf && conf > 0 && score > bestScore) {
			best, bestConf, bestScore = d, conf, score
		}
	}
	if bestConf == 0 {
		return nil
	}

	return &model.MappingSuggestion{
		SourceField:      source,
		DestinationField: best,
		Confidence:       bestConf,
		Reason:           fmt.Sprintf("Similar field name (%.0f%% similarity)", bestScore*100),
		Stage:            model.StageSimilarity,
	}
}

// similarityTier converts a name score into a confidence tier.
func similarityTier(score float64, sharedToken bool) float64 {
	switch {
	case score > 0.85:
		return 0.75
	case score > 0.7:
		return 0.65
	case score > 0.5:
		return 0.5
	case sharedToken:
		return 0.4
	default:
		return 0
	}
}
