// Package mapping proposes destination fields for source fields using an
// ordered cascade of matchers.
package mapping

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/lexicon"
	"github.com/sells-group/migrate-cli/internal/model"
)

// Matcher proposes a destination for one source field, or returns nil when
// it has nothing to offer. destinations is non-empty and free of duplicates.
type Matcher interface {
	TryMatch(source string, destinations []string, objectType string) *model.MappingSuggestion
}

// Resolver applies its matchers in order; the first suggestion wins.
type Resolver struct {
	matchers []Matcher
}

// NewResolver returns a Resolver running the exact, pattern and similarity
// matchers against lex.
func NewResolver(lex *lexicon.Lexicon) *Resolver {
	return NewResolverWith(
		&ExactMatcher{Lexicon: lex},
		&PatternMatcher{Lexicon: lex},
		&SimilarityMatcher{},
	)
}

// NewResolverWith returns a Resolver with a custom matcher chain.
func NewResolverWith(matchers ...Matcher) *Resolver {
	return &Resolver{matchers: matchers}
}

// Resolve returns at most one suggestion per source field, in source order.
// An empty destination list yields no suggestions.
func (r *Resolver) Resolve(sourceFields, destinationFields []string, objectType string) []model.MappingSuggestion {
	dests := dedupe(destinationFields)
	if len(dests) == 0 {
		return nil
	}

	var out []model.MappingSuggestion
	for _, src := range sourceFields {
		if strings.TrimSpace(src) == "" {
			continue
		}
		if s := r.resolveOne(src, dests, objectType); s != nil {
			out = append(out, *s)
		}
	}

	zap.L().Debug("mapping: resolved fields",
		zap.String("object_type", objectType),
		zap.Int("source_fields", len(sourceFields)),
		zap.Int("destination_fields", len(dests)),
		zap.Int("suggestions", len(out)),
	)
	return out
}

func (r *Resolver) resolveOne(src string, dests []string, objectType string) *model.MappingSuggestion {
	for _, m := range r.matchers {
		if s := m.TryMatch(src, dests, objectType); s != nil {
			zap.L().Debug("mapping: matched",
				zap.String("source", src),
				zap.String("destination", s.DestinationField),
				zap.String("stage", string(s.Stage)),
				zap.Float64("confidence", s.Confidence),
			)
			return s
		}
	}
	return nil
}

// dedupe drops repeated destination names, keeping the first occurrence.
func dedupe(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
