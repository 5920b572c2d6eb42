package validate

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ConfigError reports a rule set that cannot be compiled: a bad regex,
// an unknown kind, a missing predicate or an undecodable rule file. A job
// must not start when its rules produce a ConfigError.
type ConfigError struct {
	Index int // rule position, -1 when the error is not tied to one rule
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("validate: config: %v", e.Err)
	}
	return fmt.Sprintf("validate: config: rule %d (%s): %v", e.Index, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return eris.As(err, &ce)
}
