package validate

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/migrate-cli/internal/model"
)

const (
	emailPattern   = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	phonePattern   = `^[+]?[0-9\s\-().]{7,20}$`
	websitePattern = `^(https?://)?[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)+(/\S*)?$`
)

// TransformSpec binds a built-in transform to a field in a rule file.
type TransformSpec struct {
	Field string `json:"field" yaml:"field"`
	Name  string `json:"name" yaml:"name"`
}

// RuleSet is the on-disk form of an engine configuration.
type RuleSet struct {
	Rules      []model.ValidationRule `json:"rules" yaml:"rules"`
	Transforms []TransformSpec        `json:"transforms" yaml:"transforms"`
}

// LoadRules reads a rule set from a YAML or JSON file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Index: -1, Err: eris.Wrapf(err, "read rules %s", path)}
	}
	return ParseRules(data)
}

// ParseRules decodes a rule set. JSON is accepted as a YAML subset.
func ParseRules(data []byte) (*RuleSet, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, &ConfigError{Index: -1, Err: eris.Wrap(err, "parse rules")}
	}
	if len(set.Rules) == 0 && len(set.Transforms) == 0 {
		return nil, &ConfigError{Index: -1, Err: eris.New("rule set is empty")}
	}
	return &set, nil
}

var singular = map[string]string{
	"contact":     "contacts",
	"account":     "accounts",
	"opportunity": "opportunities",
	"lead":        "leads",
}

func bound(f float64) *float64 { return &f }

// DefaultRules returns the built-in rules for an object type. Unknown types
// get nil. Lookup ignores case and accepts the singular form.
func DefaultRules(objectType string) []model.ValidationRule {
	key := strings.ToLower(strings.TrimSpace(objectType))
	if plural, ok := singular[key]; ok {
		key = plural
	}
	switch key {
	case "contacts":
		return []model.ValidationRule{
			{Field: "lastName", Kind: model.RuleRequired},
			{Field: "lastName", Kind: model.RuleLength, Params: model.RuleParams{Max: bound(80)}},
			{Field: "firstName", Kind: model.RuleLength, Params: model.RuleParams{Max: bound(40)}},
			{Field: "email", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: emailPattern}, Message: "Invalid email format"},
			{Field: "email", Kind: model.RuleUnique},
			{Field: "phone", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: phonePattern}, Message: "Invalid phone format"},
			{Field: "mobilePhone", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: phonePattern}, Message: "Invalid phone format"},
		}
	case "accounts":
		return []model.ValidationRule{
			{Field: "name", Kind: model.RuleRequired},
			{Field: "name", Kind: model.RuleLength, Params: model.RuleParams{Max: bound(255)}},
			{Field: "name", Kind: model.RuleUnique},
			{Field: "website", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: websitePattern}, Message: "Invalid website URL"},
			{Field: "phone", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: phonePattern}, Message: "Invalid phone format"},
			{Field: "annualRevenue", Kind: model.RuleRange, Params: model.RuleParams{Min: bound(0)}},
			{Field: "numberOfEmployees", Kind: model.RuleRange, Params: model.RuleParams{Min: bound(0)}},
		}
	case "opportunities":
		return []model.ValidationRule{
			{Field: "name", Kind: model.RuleRequired},
			{Field: "stageName", Kind: model.RuleRequired},
			{Field: "closeDate", Kind: model.RuleRequired},
			{Field: "closeDate", Kind: model.RuleCustom, Params: model.RuleParams{Predicate: "iso_date"}, Message: "Invalid close date"},
			{Field: "amount", Kind: model.RuleRange, Params: model.RuleParams{Min: bound(0)}},
			{Field: "probability", Kind: model.RuleRange, Params: model.RuleParams{Min: bound(0), Max: bound(100)}},
		}
	case "leads":
		return []model.ValidationRule{
			{Field: "lastName", Kind: model.RuleRequired},
			{Field: "company", Kind: model.RuleRequired},
			{Field: "email", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: emailPattern}, Message: "Invalid email format"},
			{Field: "email", Kind: model.RuleUnique},
			{Field: "phone", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: phonePattern}, Message: "Invalid phone format"},
		}
	}
	return nil
}
