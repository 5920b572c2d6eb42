// Package validate evaluates declarative rules against CRM records and
// reports per-field issues with remediation hints.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/lexicon"
	"github.com/sells-group/migrate-cli/internal/model"
)

// Option configures an Engine.
type Option func(*Engine)

// WithPredicate registers a named predicate for custom rules. It shadows a
// built-in predicate of the same name.
func WithPredicate(name string, p Predicate) Option {
	return func(e *Engine) {
		e.predicates[name] = p
	}
}

// WithTransform runs t on field before any rule is evaluated. Transforms
// for the same field run in registration order.
func WithTransform(field string, t Transform) Option {
	return func(e *Engine) {
		e.transforms = append(e.transforms, fieldTransform{field: field, name: "custom", t: t})
	}
}

// WithLexicon sets the lexicon used to recognize fields for suggestions.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(e *Engine) {
		if lex != nil {
			e.lex = lex
		}
	}
}

type fieldTransform struct {
	field string
	name  string
	t     Transform
}

type compiledRule struct {
	model.ValidationRule
	re   *regexp.Regexp
	pred Predicate
}

// Result is the outcome of validating a batch.
type Result struct {
	IsValid    bool                    `json:"is_valid"`
	Errors     []model.ValidationIssue `json:"errors"`
	ValidCount int                     `json:"valid_count"`
	Cleaned    []model.Record          `json:"-"`
}

// Engine evaluates a compiled rule set. It keeps a batch-scoped uniqueness
// index, so one Engine must not validate two batches concurrently.
type Engine struct {
	rules      []compiledRule
	predicates map[string]Predicate
	transforms []fieldTransform
	lex        *lexicon.Lexicon

	seen map[string]map[string]struct{}
}

// NewEngine compiles rules. Any malformed rule returns a *ConfigError.
func NewEngine(rules []model.ValidationRule, opts ...Option) (*Engine, error) {
	e := &Engine{
		predicates: make(map[string]Predicate, len(builtinPredicates)),
		lex:        lexicon.Default(),
		seen:       make(map[string]map[string]struct{}),
	}
	for name, p := range builtinPredicates {
		e.predicates[name] = p
	}
	for _, opt := range opts {
		opt(e)
	}

	e.rules = make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		cr, err := e.compile(r)
		if err != nil {
			return nil, &ConfigError{Index: i, Field: r.Field, Err: err}
		}
		e.rules = append(e.rules, cr)
	}
	return e, nil
}

// NewEngineFromSet compiles a RuleSet, resolving its transforms by name
// against the built-ins.
func NewEngineFromSet(set *RuleSet, opts ...Option) (*Engine, error) {
	var tOpts []Option
	for i, spec := range set.Transforms {
		t, ok := BuiltinTransform(spec.Name)
		if !ok {
			return nil, &ConfigError{Index: -1, Field: spec.Field, Err: eris.Errorf("transform %d: unknown transform %q", i, spec.Name)}
		}
		if spec.Field == "" {
			return nil, &ConfigError{Index: -1, Err: eris.Errorf("transform %d: field is required", i)}
		}
		field, name := spec.Field, spec.Name
		tOpts = append(tOpts, func(e *Engine) {
			e.transforms = append(e.transforms, fieldTransform{field: field, name: name, t: t})
		})
	}
	return NewEngine(set.Rules, append(tOpts, opts...)...)
}

func (e *Engine) compile(r model.ValidationRule) (compiledRule, error) {
	cr := compiledRule{ValidationRule: r}
	if strings.TrimSpace(r.Field) == "" {
		return cr, eris.New("field is required")
	}
	if !r.Kind.Valid() {
		return cr, eris.Errorf("unknown rule kind %q", r.Kind)
	}

	p := r.Params
	switch r.Kind {
	case model.RuleFormat:
		if p.Pattern == "" {
			return cr, eris.New("format rule needs a pattern")
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return cr, eris.Wrapf(err, "compile pattern %q", p.Pattern)
		}
		cr.re = re
	case model.RuleLength, model.RuleRange:
		if p.Min == nil && p.Max == nil {
			return cr, eris.Errorf("%s rule needs min or max", r.Kind)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return cr, eris.Errorf("min %v exceeds max %v", *p.Min, *p.Max)
		}
	case model.RuleCustom:
		pred, ok := e.predicates[p.Predicate]
		if !ok {
			return cr, eris.Errorf("unknown predicate %q", p.Predicate)
		}
		cr.pred = pred
	}
	return cr, nil
}

// Rules returns the rule definitions the engine was built from.
func (e *Engine) Rules() []model.ValidationRule {
	out := make([]model.ValidationRule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.ValidationRule
	}
	return out
}

// Reset clears the uniqueness index.
func (e *Engine) Reset() {
	e.seen = make(map[string]map[string]struct{})
}

// ValidateRecords resets the uniqueness index, then validates records in
// order. Record indices are positions within records.
func (e *Engine) ValidateRecords(records []model.Record) Result {
	e.Reset()
	res := Result{Cleaned: make([]model.Record, 0, len(records))}
	for i, rec := range records {
		cleaned, issues := e.Validate(rec, i)
		res.Cleaned = append(res.Cleaned, cleaned)
		if len(issues) == 0 {
			res.ValidCount++
			continue
		}
		res.Errors = append(res.Errors, issues...)
	}
	res.IsValid = len(res.Errors) == 0
	return res
}

// ValidateRecord returns the issues raised by record. The uniqueness index
// carries over from earlier calls until Reset or ValidateRecords.
func (e *Engine) ValidateRecord(record model.Record, index int) []model.ValidationIssue {
	_, issues := e.Validate(record, index)
	return issues
}

// Validate applies transforms, then every rule. It returns the transformed
// record along with the issues; record itself is not modified.
func (e *Engine) Validate(record model.Record, index int) (model.Record, []model.ValidationIssue) {
	rec := record.Clone()
	var issues []model.ValidationIssue

	for _, ft := range e.transforms {
		v, present := rec[ft.field]
		if !present {
			continue
		}
		out, err := applyTransform(ft.t, v)
		if err != nil {
			issues = append(issues, model.ValidationIssue{
				RecordIndex: index,
				Field:       ft.field,
				Kind:        model.IssueTransformation,
				Message:     fmt.Sprintf("%s: %s transform failed: %v", ft.field, ft.name, err),
				Value:       v,
				Suggestion:  fmt.Sprintf("Check the source value of %s", ft.field),
			})
			continue
		}
		rec[ft.field] = out
	}

	for i := range e.rules {
		if issue := e.evaluate(&e.rules[i], rec, index); issue != nil {
			issues = append(issues, *issue)
		}
	}
	return rec, issues
}

func applyTransform(t Transform, v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = v, eris.Errorf("panic: %v", r)
		}
	}()
	return t.Apply(v)
}

func (e *Engine) evaluate(r *compiledRule, rec model.Record, index int) *model.ValidationIssue {
	v := rec[r.Field]
	failed := false

	switch r.Kind {
	case model.RuleRequired:
		failed = model.IsEmpty(v)
	case model.RuleFormat:
		failed = !model.IsEmpty(v) && !r.re.MatchString(toString(v))
	case model.RuleLength:
		if s, ok := v.(string); ok {
			failed = outOfBounds(float64(utf8.RuneCountInString(s)), r.Params)
		}
	case model.RuleRange:
		if f, ok := toFloat(v); ok {
			failed = outOfBounds(f, r.Params)
		}
	case model.RuleUnique:
		failed = e.checkUnique(r.Field, v)
	case model.RuleCustom:
		failed = !e.runPredicate(r, v, rec)
	}
	if !failed {
		return nil
	}

	return &model.ValidationIssue{
		RecordIndex: index,
		Field:       r.Field,
		Kind:        model.IssueKind(r.Kind),
		Message:     message(r, v),
		Value:       v,
		Suggestion:  e.suggest(r, v),
	}
}

// checkUnique records v and reports whether it was already seen. Empty
// values are exempt.
func (e *Engine) checkUnique(field string, v any) bool {
	if model.IsEmpty(v) {
		return false
	}
	key := model.NormalizeValue(v)
	if key == "" {
		return false
	}
	seen, ok := e.seen[field]
	if !ok {
		seen = make(map[string]struct{})
		e.seen[field] = seen
	}
	if _, dup := seen[key]; dup {
		return true
	}
	seen[key] = struct{}{}
	return false
}

// runPredicate treats a panicking predicate as a failed check.
func (e *Engine) runPredicate(r *compiledRule, v any, rec model.Record) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Warn("validate: custom predicate panicked",
				zap.String("field", r.Field),
				zap.String("predicate", r.Params.Predicate),
				zap.Any("panic", p),
			)
			ok = false
		}
	}()
	return r.pred.Check(v, rec)
}

func outOfBounds(n float64, p model.RuleParams) bool {
	if p.Min != nil && n < *p.Min {
		return true
	}
	if p.Max != nil && n > *p.Max {
		return true
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// toFloat accepts Go numeric types and numeric text.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
