// internal/domain/trend/reasoner.go

package trend

import (
	"context"
)

// Reasoner defines the interface for the language-model step of the pipeline
type Reasoner interface {
	// ExtractTrends turns raw signals into trend candidates
	ExtractTrends(ctx context.Context, signals []RawSignal) ([]Candidate, error)

	// GenerateSuggestions proposes brand opportunities for accepted candidates
	GenerateSuggestions(ctx context.Context, candidates []Candidate) ([]SuggestionCandidate, error)

	// Summarize writes the narrative for a digest from the leading trends and suggestions
	Summarize(ctx context.Context, trends []Trend, suggestions []Suggestion) (string, error)
}
