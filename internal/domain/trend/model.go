package trend

import (
	"strings"
	"time"
)

// MinConfidence is the reasoner confidence a candidate must exceed to be kept
const MinConfidence = 70

// Impact rates the expected brand impact of a trend or suggestion
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Effort rates how hard a suggestion is to execute
type Effort string

const (
	EffortHigh   Effort = "high"
	EffortMedium Effort = "medium"
	EffortLow    Effort = "low"
)

// SuggestionType classifies a brand suggestion
type SuggestionType string

const (
	TypeStrategic   SuggestionType = "strategic"
	TypeContent     SuggestionType = "content"
	TypePartnership SuggestionType = "partnership"
	TypeQuickWin    SuggestionType = "quick-win"
)

// RawSignal is one normalized record produced by a collector
type RawSignal struct {
	Platform   string                 `json:"platform"`
	Content    string                 `json:"content"`
	Mentions   int                    `json:"mentions"`
	Engagement *int                   `json:"engagement,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Trend represents a persisted trend extracted by the reasoner
type Trend struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Category         string      `json:"category"`
	Sources          []RawSignal `json:"sources"`
	Confidence       int         `json:"confidence"`
	TrendScore       int         `json:"trendScore"`
	ChangePercentage int         `json:"changePercentage"`
	Impact           Impact      `json:"impact"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Suggestion is a brand opportunity loosely tied to a trend.
// TrendID is a lookup reference only; the trend may not exist.
type Suggestion struct {
	ID          int64          `json:"id"`
	TrendID     *int64         `json:"trendId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Impact      Impact         `json:"impact"`
	Effort      Effort         `json:"effort"`
	Type        SuggestionType `json:"type"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Candidate is a trend proposed by the reasoner before persistence
type Candidate struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Confidence       int    `json:"confidence"`
	TrendScore       int    `json:"trendScore"`
	ChangePercentage int    `json:"changePercentage"`
	Impact           Impact `json:"impact"`
}

// Accepted reports whether the candidate clears MinConfidence
func (c Candidate) Accepted() bool {
	return c.Confidence > MinConfidence
}

// Keyword returns the lower-cased first word of the title
func (c Candidate) Keyword() string {
	fields := strings.Fields(strings.ToLower(c.Title))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SuggestionCandidate is a suggestion proposed by the reasoner before persistence
type SuggestionCandidate struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Impact      Impact         `json:"impact"`
	Effort      Effort         `json:"effort"`
	Type        SuggestionType `json:"type"`
}

// ParseImpact normalizes free-form impact text, defaulting to medium
func ParseImpact(s string) Impact {
	switch Impact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactHigh:
		return ImpactHigh
	case ImpactLow:
		return ImpactLow
	default:
		return ImpactMedium
	}
}

// ParseEffort normalizes free-form effort text, defaulting to medium
func ParseEffort(s string) Effort {
	switch Effort(strings.ToLower(strings.TrimSpace(s))) {
	case EffortHigh:
		return EffortHigh
	case EffortLow:
		return EffortLow
	default:
		return EffortMedium
	}
}

// ParseSuggestionType normalizes free-form type text, defaulting to content
func ParseSuggestionType(s string) SuggestionType {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch SuggestionType(normalized) {
	case TypeStrategic, TypePartnership, TypeQuickWin:
		return SuggestionType(normalized)
	case "quickwin", "quick win":
		return TypeQuickWin
	default:
		return TypeContent
	}
}
