package model

// MatchStage identifies the resolver stage that produced a suggestion.
type MatchStage string

const (
	StageExact      MatchStage = "exact"
	StagePattern    MatchStage = "pattern"
	StageSimilarity MatchStage = "similarity"
)

// MappingSuggestion proposes a destination for one source field.
type MappingSuggestion struct {
	SourceField      string     `json:"source_field"`
	DestinationField string     `json:"destination_field"`
	Confidence       float64    `json:"confidence"`
	IsRequired       bool       `json:"is_required"`
	Reason           string     `json:"reason"`
	Stage            MatchStage `json:"stage"`
}
