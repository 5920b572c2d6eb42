package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/model"
)

func TestDefaultRules_Compile(t *testing.T) {
	for _, typ := range []string{"contacts", "accounts", "opportunities", "leads"} {
		t.Run(typ, func(t *testing.T) {
			rules := DefaultRules(typ)
			require.NotEmpty(t, rules)
			_, err := NewEngine(rules)
			require.NoError(t, err)
		})
	}
}

func TestDefaultRules_Aliases(t *testing.T) {
	assert.Equal(t, DefaultRules("contacts"), DefaultRules("Contact"))
	assert.Equal(t, DefaultRules("opportunities"), DefaultRules("opportunity"))
	assert.Nil(t, DefaultRules("widgets"))
}

func TestDefaultRules_Opportunities(t *testing.T) {
	e := newEngine(t, DefaultRules("opportunities"))

	issues := e.ValidateRecord(model.Record{
		"name":        "Renewal",
		"stageName":   "Prospecting",
		"closeDate":   "2024-13-45",
		"amount":      "-100",
		"probability": 150,
	}, 0)
	require.Len(t, issues, 3)
	assert.Equal(t, "closeDate", issues[0].Field)
	assert.Equal(t, "Check that the date exists", issues[0].Suggestion)
	assert.Equal(t, "amount", issues[1].Field)
	assert.Equal(t, "probability", issues[2].Field)
}

func TestDefaultRules_AccountWebsite(t *testing.T) {
	e := newEngine(t, DefaultRules("accounts"))

	assert.Empty(t, e.ValidateRecord(model.Record{"name": "Acme", "website": "https://acme.io/about"}, 0))
	assert.Empty(t, e.ValidateRecord(model.Record{"name": "Acme 2", "website": "acme.io"}, 1))
	assert.Len(t, e.ValidateRecord(model.Record{"name": "Acme 3", "website": "not a site"}, 2), 1)
}

func TestParseRules_YAML(t *testing.T) {
	data := []byte(`
rules:
  - field: email
    kind: format
    params:
      pattern: '^\S+@\S+$'
    message: bad email
  - field: age
    kind: range
    params:
      min: 0
      max: 130
transforms:
  - field: email
    name: trim
`)
	set, err := ParseRules(data)
	require.NoError(t, err)
	require.Len(t, set.Rules, 2)
	assert.Equal(t, model.RuleFormat, set.Rules[0].Kind)
	assert.Equal(t, `^\S+@\S+$`, set.Rules[0].Params.Pattern)
	require.NotNil(t, set.Rules[1].Params.Max)
	assert.InDelta(t, 130.0, *set.Rules[1].Params.Max, 0)

	e, err := NewEngineFromSet(set)
	require.NoError(t, err)
	cleaned, issues := e.Validate(model.Record{"email": " a@b ", "age": "30"}, 0)
	assert.Empty(t, issues)
	assert.Equal(t, "a@b", cleaned["email"])
}

func TestParseRules_JSON(t *testing.T) {
	data := []byte(`{"rules":[{"field":"name","kind":"required"}]}`)
	set, err := ParseRules(data)
	require.NoError(t, err)
	require.Len(t, set.Rules, 1)
	assert.Equal(t, model.RuleRequired, set.Rules[0].Kind)
}

func TestParseRules_Errors(t *testing.T) {
	_, err := ParseRules([]byte("rules: [unterminated"))
	assert.True(t, IsConfigError(err))

	_, err = ParseRules([]byte("rules: []"))
	assert.True(t, IsConfigError(err))
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - field: name\n    kind: required\n"), 0o644))

	set, err := LoadRules(path)
	require.NoError(t, err)
	assert.Len(t, set.Rules, 1)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, IsConfigError(err))
}

func TestNewEngineFromSet_UnknownTransform(t *testing.T) {
	_, err := NewEngineFromSet(&RuleSet{Transforms: []TransformSpec{{Field: "a", Name: "reverse"}}})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestIsConfigError_Wrapped(t *testing.T) {
	_, err := NewEngine([]model.ValidationRule{{Field: "email", Kind: model.RuleFormat, Params: model.RuleParams{Pattern: "("}}})
	require.Error(t, err)

	wrapped := eris.Wrap(err, "cleanse: build engine")
	assert.True(t, IsConfigError(wrapped))
	assert.False(t, IsConfigError(eris.New("cleanse: other")))
	assert.False(t, IsConfigError(nil))
}
