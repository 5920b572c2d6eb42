package validate

import (
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Predicate backs a custom rule. It returns false when value fails.
type Predicate interface {
	Check(value any, record model.Record) bool
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(value any, record model.Record) bool

func (f PredicateFunc) Check(value any, record model.Record) bool {
	return f(value, record)
}

// Transform rewrites a field value before rules run.
type Transform interface {
	Apply(value any) (any, error)
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(value any) (any, error)

func (f TransformFunc) Apply(value any) (any, error) {
	return f(value)
}

var builtinPredicates = map[string]Predicate{
	// iso_date passes empty values; presence is the required rule's job.
	"iso_date": PredicateFunc(func(v any, _ model.Record) bool {
		switch t := v.(type) {
		case nil:
			return true
		case time.Time:
			return !t.IsZero()
		case string:
			if t == "" {
				return true
			}
			_, err := time.Parse(time.DateOnly, strings.TrimSpace(t))
			return err == nil
		default:
			return false
		}
	}),
	"non_negative": PredicateFunc(func(v any, _ model.Record) bool {
		if model.IsEmpty(v) {
			return true
		}
		f, ok := toFloat(v)
		return ok && f >= 0
	}),
}

var builtinTransforms = map[string]Transform{
	"trim":            stringTransform(strings.TrimSpace),
	"lower":           stringTransform(strings.ToLower),
	"upper":           stringTransform(strings.ToUpper),
	"collapse_spaces": stringTransform(func(s string) string { return strings.Join(strings.Fields(s), " ") }),
	"digits": stringTransform(func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, s)
	}),
}

// BuiltinTransform returns the named built-in transform.
func BuiltinTransform(name string) (Transform, bool) {
	t, ok := builtinTransforms[name]
	return t, ok
}

// stringTransform applies fn to string values, passes nil through and
// rejects every other type.
func stringTransform(fn func(string) string) Transform {
	return TransformFunc(func(v any) (any, error) {
		switch s := v.(type) {
		case nil:
			return nil, nil
		case string:
			return fn(s), nil
		default:
			return v, eris.Errorf("expected text, got %T", v)
		}
	})
}
