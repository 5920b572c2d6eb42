// Package lexicon holds the canonical CRM field concepts and the name
// variants each concept is known by, grouped per migration object type.
package lexicon

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/migrate-cli/internal/similarity"
)

// Category groups concepts by the CRM entity they describe.
type Category string

const (
	CategoryContact     Category = "contact"
	CategoryAccount     Category = "account"
	CategoryOpportunity Category = "opportunity"
	CategoryAddress     Category = "address"
	CategorySystem      Category = "system"
)

// Concept is a canonical field and the names it appears under in source systems.
type Concept struct {
	Name     string   `yaml:"name" json:"name"`
	Variants []string `yaml:"variants" json:"variants"`
	Required bool     `yaml:"required" json:"required"`
	Category Category `yaml:"category" json:"category"`

	keys []string // normalized variants
}

// HasVariant reports whether name equals one of the concept's variants,
// ignoring case.
func (c *Concept) HasVariant(name string) bool {
	for _, v := range c.Variants {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// MatchesKey reports whether a normalized field name is one of the
// concept's normalized variants.
func (c *Concept) MatchesKey(key string) bool {
	for _, k := range c.keys {
		if k == key {
			return true
		}
	}
	return false
}

// Keys returns the normalized variants in declaration order.
func (c *Concept) Keys() []string {
	return c.keys
}

// Lexicon indexes concept pattern sets by object type.
type Lexicon struct {
	sets  map[string][]Concept
	order []string
}

// New builds a Lexicon from pattern sets keyed by object type. Object type
// keys are matched case-insensitively.
func New(sets map[string][]Concept) *Lexicon {
	l := &Lexicon{sets: make(map[string][]Concept, len(sets))}
	for objectType, concepts := range sets {
		key := strings.ToLower(strings.TrimSpace(objectType))
		cs := make([]Concept, len(concepts))
		for i, c := range concepts {
			c.keys = make([]string, 0, len(c.Variants)+1)
			for _, v := range c.Variants {
				if k := similarity.NormalizeKey(v); k != "" {
					c.keys = append(c.keys, k)
				}
			}
			cs[i] = c
		}
		l.sets[key] = cs
		l.order = append(l.order, key)
	}
	sort.Strings(l.order)
	return l
}

// Load reads a lexicon from a YAML file shaped as
// {object_types: {contacts: [{name, variants, required, category}]}}.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "lexicon: read %s", path)
	}
	var doc struct {
		ObjectTypes map[string][]Concept `yaml:"object_types"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "lexicon: parse %s", path)
	}
	if len(doc.ObjectTypes) == 0 {
		return nil, eris.Errorf("lexicon: %s defines no object types", path)
	}
	return New(doc.ObjectTypes), nil
}

// ObjectTypes lists the registered object types in sorted order.
func (l *Lexicon) ObjectTypes() []string {
	return append([]string(nil), l.order...)
}

// PatternSet returns the concepts registered for objectType. The singular
// form is accepted ("Contact" finds "contacts").
func (l *Lexicon) PatternSet(objectType string) ([]Concept, bool) {
	key := strings.ToLower(strings.TrimSpace(objectType))
	if key == "" {
		return nil, false
	}
	if cs, ok := l.sets[key]; ok {
		return cs, true
	}
	if cs, ok := l.sets[key+"s"]; ok {
		return cs, true
	}
	if strings.HasSuffix(key, "y") {
		if cs, ok := l.sets[strings.TrimSuffix(key, "y")+"ies"]; ok {
			return cs, true
		}
	}
	return nil, false
}

// Lookup finds the concept whose variant list contains field, ignoring
// case. The objectType's set is searched first, then every other set.
func (l *Lexicon) Lookup(field, objectType string) *Concept {
	if cs, ok := l.PatternSet(objectType); ok {
		if c := findVariant(cs, field); c != nil {
			return c
		}
	}
	for _, key := range l.order {
		if c := findVariant(l.sets[key], field); c != nil {
			return c
		}
	}
	return nil
}

// ConceptOf identifies which concept a field name refers to, tolerating
// qualifiers and representation suffixes ("primary_email" is email).
// Returns nil when nothing is close enough.
func (l *Lexicon) ConceptOf(field string) *Concept {
	if c := l.Lookup(field, ""); c != nil {
		return c
	}
	for _, key := range l.order {
		cs := l.sets[key]
		for i := range cs {
			if similarity.ConceptuallySimilar(field, cs[i].Name) {
				return &cs[i]
			}
		}
	}
	return nil
}

func findVariant(cs []Concept, field string) *Concept {
	for i := range cs {
		if cs[i].HasVariant(field) {
			return &cs[i]
		}
	}
	return nil
}
