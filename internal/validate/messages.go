package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/migrate-cli/internal/model"
)

// emailTypos maps common misspelled mail domains to the intended one.
var emailTypos = map[string]string{
	"gmial.com":   "gmail.com",
	"gmai.com":    "gmail.com",
	"gamil.com":   "gmail.com",
	"gmail.co":    "gmail.com",
	"hotmial.com": "hotmail.com",
	"hotmail.co":  "hotmail.com",
	"yahooo.com":  "yahoo.com",
	"yaho.com":    "yahoo.com",
	"outlok.com":  "outlook.com",
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// message returns the rule's own message or a default for its kind.
func message(r *compiledRule, v any) string {
	if r.Message != "" {
		return r.Message
	}
	switch r.Kind {
	case model.RuleRequired:
		return fmt.Sprintf("%s is required", r.Field)
	case model.RuleFormat:
		return fmt.Sprintf("%s has an invalid format", r.Field)
	case model.RuleLength:
		return fmt.Sprintf("%s length is outside %s characters", r.Field, bounds(r.Params))
	case model.RuleRange:
		return fmt.Sprintf("%s must be within %s", r.Field, bounds(r.Params))
	case model.RuleUnique:
		return fmt.Sprintf("%s value %q is not unique", r.Field, toString(v))
	default:
		return fmt.Sprintf("%s failed check %s", r.Field, r.Params.Predicate)
	}
}

func bounds(p model.RuleParams) string {
	switch {
	case p.Min != nil && p.Max != nil:
		return fmt.Sprintf("%g to %g", *p.Min, *p.Max)
	case p.Min != nil:
		return fmt.Sprintf("at least %g", *p.Min)
	case p.Max != nil:
		return fmt.Sprintf("at most %g", *p.Max)
	}
	return "bounds"
}

// suggest picks a remediation hint from the rule kind and the concept the
// field name refers to. Empty when nothing specific applies.
func (e *Engine) suggest(r *compiledRule, v any) string {
	switch r.Kind {
	case model.RuleRequired:
		return fmt.Sprintf("Provide a value for %s", r.Field)
	case model.RuleUnique:
		return "This record appears to be a duplicate"
	case model.RuleLength:
		n := float64(utf8.RuneCountInString(toString(v)))
		if r.Params.Min != nil && n < *r.Params.Min {
			return fmt.Sprintf("Lengthen %s to at least %g characters", r.Field, *r.Params.Min)
		}
		if r.Params.Max != nil {
			return fmt.Sprintf("Shorten %s to at most %g characters", r.Field, *r.Params.Max)
		}
		return ""
	case model.RuleRange:
		return fmt.Sprintf("Use a number %s", bounds(r.Params))
	}

	concept := ""
	if c := e.lex.ConceptOf(r.Field); c != nil {
		concept = c.Name
	}
	s := strings.TrimSpace(toString(v))

	switch concept {
	case "email":
		return emailHint(s)
	case "phone", "mobile_phone":
		if strings.IndexFunc(s, unicode.IsLetter) >= 0 {
			return "Phone numbers should contain only digits and separators"
		}
		return "Use 7 to 20 digits, optionally with +, spaces, dashes or parentheses"
	case "website":
		if !strings.Contains(s, "://") {
			return "Add the scheme, e.g. https://" + s
		}
		return "Check the website URL"
	case "postal_code":
		return "Check the postal code format"
	case "close_date", "birthdate":
		if !datePattern.MatchString(s) {
			return "Use the YYYY-MM-DD date format"
		}
		return "Check that the date exists"
	}
	if r.Kind == model.RuleCustom && r.Params.Predicate == "iso_date" {
		return "Use the YYYY-MM-DD date format"
	}
	return ""
}

func emailHint(s string) string {
	if strings.ContainsAny(s, " \t") {
		return "Remove spaces from the email address"
	}
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return "Email address is missing @"
	}
	domain := strings.ToLower(s[at+1:])
	if fix, ok := emailTypos[domain]; ok {
		return fmt.Sprintf("Did you mean %s@%s?", s[:at], fix)
	}
	if !strings.Contains(domain, ".") {
		return "Email domain is missing a dot"
	}
	return "Check the email address format"
}
