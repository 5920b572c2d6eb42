package model

// RuleKind names a validation check.
type RuleKind string

const (
	RuleRequired RuleKind = "required"
	RuleFormat   RuleKind = "format"
	RuleLength   RuleKind = "length"
	RuleRange    RuleKind = "range"
	RuleUnique   RuleKind = "unique"
	RuleCustom   RuleKind = "custom"
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleRequired, RuleFormat, RuleLength, RuleRange, RuleUnique, RuleCustom:
		return true
	}
	return false
}

// RuleParams carries the kind-specific parameters of a rule.
// Min and Max bound string length for length rules and the value for range rules.
type RuleParams struct {
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Predicate string   `json:"predicate,omitempty" yaml:"predicate,omitempty"`
}

// ValidationRule is a declarative check applied to one field of every record.
type ValidationRule struct {
	Field   string     `json:"field" yaml:"field"`
	Kind    RuleKind   `json:"kind" yaml:"kind"`
	Params  RuleParams `json:"params" yaml:"params"`
	Message string     `json:"message" yaml:"message"`
}

// IssueKind classifies a ValidationIssue. Rule failures reuse the rule kind.
type IssueKind string

const (
	IssueRequired       IssueKind = IssueKind(RuleRequired)
	IssueFormat         IssueKind = IssueKind(RuleFormat)
	IssueLength         IssueKind = IssueKind(RuleLength)
	IssueRange          IssueKind = IssueKind(RuleRange)
	IssueUnique         IssueKind = IssueKind(RuleUnique)
	IssueCustom         IssueKind = IssueKind(RuleCustom)
	IssueDuplicate      IssueKind = "duplicate"
	IssueTransformation IssueKind = "transformation_error"
)

// ValidationIssue records a single failed check on a record.
type ValidationIssue struct {
	RecordIndex int       `json:"record_index"`
	Field       string    `json:"field_name"`
	Kind        IssueKind `json:"error_kind"`
	Message     string    `json:"message"`
	Value       any       `json:"raw_value"`
	Suggestion  string    `json:"suggestion,omitempty"`
}

// QualityMetrics summarizes record quality as percentages with one decimal.
type QualityMetrics struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Uniqueness   float64 `json:"uniqueness"`
	Consistency  float64 `json:"consistency"`
	Overall      float64 `json:"overall"`
}
