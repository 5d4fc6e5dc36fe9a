// internal/adapter/scraper/tiktok.go

package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

var defaultHashtags = []string{
	"sustainablefashion",
	"thrifting",
	"vintagefashion",
	"fashiontok",
	"outfit",
	"style",
	"cottagecore",
	"slowfashion",
	"upcycling",
	"ethicalfashion",
}

// defaultViews is the mention count used when a tag page shows no view figure
const defaultViews = 100000

var viewCountPattern = regexp.MustCompile(`(?i)([\d.]+[KMB])\s*views?`)

// TikTok collects hashtag page statistics
type TikTok struct {
	client
	Hashtags []string
}

type indicator struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTikTok creates a tiktok collector
func NewTikTok(opts Options) *TikTok {
	return &TikTok{
		client:   newClient(opts, source.PlatformTikTok, "https://www.tiktok.com", browserUserAgent, 3*time.Second),
		Hashtags: defaultHashtags,
	}
}

// Name returns the display name
func (t *TikTok) Name() string { return "TikTok" }

// Platform returns the platform key
func (t *TikTok) Platform() string { return source.PlatformTikTok }

// Collect reads each hashtag page and emits one signal per tag.
// It fails only when no page could be read.
func (t *TikTok) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	var signals []trend.RawSignal
	var lastErr error

	for _, tag := range t.Hashtags {
		signal, err := t.hashtag(ctx, tag)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.WithError(err).WithField("hashtag", tag).Warn("Error scraping hashtag")
			lastErr = err
			continue
		}
		signals = append(signals, signal)
	}

	if len(signals) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to scrape TikTok data: %w", lastErr)
	}
	return signals, nil
}

func (t *TikTok) hashtag(ctx context.Context, tag string) (trend.RawSignal, error) {
	url := fmt.Sprintf("%s/tag/%s", t.baseURL, tag)

	body, err := t.get(ctx, url, nil)
	if err != nil {
		return trend.RawSignal{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return trend.RawSignal{}, fmt.Errorf("failed to parse tag page: %w", err)
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	views := "N/A"
	mentions := defaultViews
	if m := viewCountPattern.FindStringSubmatch(description); m != nil {
		views = m[1]
		if n, ok := parseCount(m[1]); ok {
			mentions = n
		}
	}

	var indicators []indicator
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var ind indicator
		if err := json.Unmarshal([]byte(s.Text()), &ind); err != nil {
			return
		}
		if ind.Name != "" || ind.Description != "" {
			indicators = append(indicators, ind)
		}
	})

	descriptions := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		if ind.Description != "" {
			descriptions = append(descriptions, ind.Description)
		}
	}

	shown := views
	if shown == "N/A" {
		shown = "significant"
	}
	content := fmt.Sprintf("TikTok hashtag #%s trending with %s views. %s",
		tag, shown, truncate(strings.Join(descriptions, " "), 300))

	if len(indicators) > 3 {
		indicators = indicators[:3]
	}

	return trend.RawSignal{
		Platform: source.PlatformTikTok,
		Content:  strings.TrimSpace(content),
		Mentions: mentions,
		Metadata: map[string]interface{}{
			"hashtag":    tag,
			"viewCount":  views,
			"url":        fmt.Sprintf("https://www.tiktok.com/tag/%s", tag),
			"indicators": indicators,
		},
	}, nil
}
