// internal/adapter/reasoner/openai.go

package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/trend"
)

// FallbackSummary is returned by Summarize when the model cannot be reached
const FallbackSummary = "Today's cultural trends analysis is complete. View the full report for detailed insights and brand opportunities."

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("openai api key not configured")

const (
	trendSystemPrompt      = "You are a cultural trend analyst specializing in fashion and lifestyle brands. Respond with valid JSON only."
	suggestionSystemPrompt = "You are a brand strategist specializing in fashion and lifestyle. Generate creative, actionable brand opportunities. Respond with valid JSON only."
	summarySystemPrompt    = "You are a cultural intelligence expert writing for fashion and lifestyle brand executives."
)

// Config contains configuration for the OpenAI reasoner
type Config struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// OpenAI implements trend.Reasoner against an OpenAI-compatible chat completions API
type OpenAI struct {
	client *http.Client
	apiKey string
	apiURL string
	model  string
	logger logrus.FieldLogger
}

var _ trend.Reasoner = (*OpenAI)(nil)

// NewOpenAI creates a new OpenAI reasoner
func NewOpenAI(cfg Config, logger logrus.FieldLogger) *OpenAI {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &OpenAI{
		client: &http.Client{Timeout: timeout},
		apiKey: cfg.APIKey,
		apiURL: apiURL,
		model:  model,
		logger: logger.WithField("component", "reasoner"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// wireCandidate tolerates fractional numbers from the model
type wireCandidate struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Confidence       float64 `json:"confidence"`
	TrendScore       float64 `json:"trendScore"`
	ChangePercentage float64 `json:"changePercentage"`
	Impact           string  `json:"impact"`
}

type wireSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Effort      string `json:"effort"`
	Type        string `json:"type"`
}

// ExtractTrends asks the model for trends in the raw signals
func (o *OpenAI) ExtractTrends(ctx context.Context, signals []trend.RawSignal) ([]trend.Candidate, error) {
	data, err := json.Marshal(signals)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal signals: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following cultural trend data for fashion/lifestyle brands and extract meaningful trends.

Data: %s

Please identify and analyze trends focusing on:
- Fashion and lifestyle relevance
- Cultural significance
- Brand opportunity potential
- Trend momentum and growth

For each trend, provide:
- title: Clear, engaging trend name
- description: 2-3 sentences explaining the trend and its cultural significance
- category: One of "fashion", "lifestyle", "tech", "beauty", "sustainability"
- confidence: 0-100 (how confident you are this is a real trend)
- trendScore: 0-100 (trend strength/momentum)
- changePercentage: -100 to +500 (growth rate)
- impact: "high", "medium", or "low" (potential brand impact)

Return a JSON object of the form {"trends": [...]}. Only include trends with confidence > %d.`, data, trend.MinConfidence)

	content, err := o.complete(ctx, trendSystemPrompt, prompt, 0.7, true)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze trends: %w", err)
	}

	var out struct {
		Trends []wireCandidate `json:"trends"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to analyze trends: unparseable response: %w", err)
	}

	candidates := make([]trend.Candidate, 0, len(out.Trends))
	for _, w := range out.Trends {
		if strings.TrimSpace(w.Title) == "" {
			continue
		}
		candidates = append(candidates, trend.Candidate{
			Title:            strings.TrimSpace(w.Title),
			Description:      w.Description,
			Category:         strings.ToLower(strings.TrimSpace(w.Category)),
			Confidence:       clamp(w.Confidence, 0, 100),
			TrendScore:       clamp(w.TrendScore, 0, 100),
			ChangePercentage: clamp(w.ChangePercentage, -100, 500),
			Impact:           trend.ParseImpact(w.Impact),
		})
	}
	return candidates, nil
}

// GenerateSuggestions asks the model for brand opportunities
func (o *OpenAI) GenerateSuggestions(ctx context.Context, candidates []trend.Candidate) ([]trend.SuggestionCandidate, error) {
	data, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal trends: %w", err)
	}

	prompt := fmt.Sprintf(`Based on these cultural trends, generate 2-3 creative brand response suggestions for each trend.
Focus on fashion/lifestyle brand opportunities.

Trends: %s

For each suggestion, provide:
- title: Catchy, actionable suggestion name
- description: 2-3 sentences explaining the opportunity and execution
- impact: "high", "medium", "low" (business impact potential)
- effort: "high", "medium", "low" (implementation difficulty)
- type: "strategic" (long-term initiatives), "content" (marketing/content), "partnership" (collaborations), "quick-win" (fast implementation)

Prioritize suggestions that are actionable, specific and feasible for fashion/lifestyle brands.

Return a JSON object of the form {"suggestions": [...]}.`, data)

	content, err := o.complete(ctx, suggestionSystemPrompt, prompt, 0.8, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate brand suggestions: %w", err)
	}

	var out struct {
		Suggestions []wireSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("failed to generate brand suggestions: unparseable response: %w", err)
	}

	suggestions := make([]trend.SuggestionCandidate, 0, len(out.Suggestions))
	for _, w := range out.Suggestions {
		if strings.TrimSpace(w.Title) == "" {
			continue
		}
		suggestions = append(suggestions, trend.SuggestionCandidate{
			Title:       strings.TrimSpace(w.Title),
			Description: w.Description,
			Impact:      trend.ParseImpact(w.Impact),
			Effort:      trend.ParseEffort(w.Effort),
			Type:        trend.ParseSuggestionType(w.Type),
		})
	}
	return suggestions, nil
}

// Summarize writes the digest narrative. Model failures yield FallbackSummary.
func (o *OpenAI) Summarize(ctx context.Context, trends []trend.Trend, suggestions []trend.Suggestion) (string, error) {
	type trendBrief struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		TrendScore  int    `json:"trendScore"`
		Impact      string `json:"impact"`
	}
	type suggestionBrief struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Impact      string `json:"impact"`
		Effort      string `json:"effort"`
		Type        string `json:"type"`
	}

	briefs := make([]trendBrief, 0, len(trends))
	for _, t := range trends {
		briefs = append(briefs, trendBrief{t.Title, t.Description, t.Category, t.TrendScore, string(t.Impact)})
	}
	ideas := make([]suggestionBrief, 0, len(suggestions))
	for _, s := range suggestions {
		ideas = append(ideas, suggestionBrief{s.Title, s.Description, string(s.Impact), string(s.Effort), string(s.Type)})
	}

	trendsJSON, _ := json.Marshal(briefs)
	ideasJSON, _ := json.Marshal(ideas)

	prompt := fmt.Sprintf(`Create an engaging email summary for a daily cultural trends report.

Top Trends: %s
Top Suggestions: %s

Write a brief, engaging summary (2-3 paragraphs) that:
- Highlights the most important cultural shifts
- Explains why these trends matter for fashion/lifestyle brands
- Teases the brand opportunities included in the report
- Maintains an expert but accessible tone

Do not include HTML formatting.`, trendsJSON, ideasJSON)

	content, err := o.complete(ctx, summarySystemPrompt, prompt, 0.7, false)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to generate email summary, using fallback")
		return FallbackSummary, nil
	}
	if strings.TrimSpace(content) == "" {
		return FallbackSummary, nil
	}
	return strings.TrimSpace(content), nil
}

// complete sends one chat completion and returns the first choice content
func (o *OpenAI) complete(ctx context.Context, system, user string, temperature float64, jsonMode bool) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	reqBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("openai: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func clamp(v float64, lo, hi int) int {
	n := int(math.Round(v))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
