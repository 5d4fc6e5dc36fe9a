// internal/adapter/scraper/googletrends.go

package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

var defaultTrendKeywords = []string{
	"sustainable fashion",
	"vintage clothing",
	"streetwear trends",
	"fashion sustainability",
	"ethical fashion",
	"slow fashion",
	"cottagecore",
	"minimalist fashion",
	"thrift shopping",
	"upcycling fashion",
}

// defaultTraffic is used when a search carries no readable traffic figure
const defaultTraffic = 1000

// GoogleTrends collects daily trending searches relevant to fashion keywords
type GoogleTrends struct {
	client
	Keywords []string
	Geo      string
}

type dailyTrends struct {
	Default struct {
		TrendingSearchesDays []struct {
			TrendingSearches []trendingSearch `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}

type trendingSearch struct {
	Title struct {
		Query string `json:"query"`
	} `json:"title"`
	FormattedTraffic string `json:"formattedTraffic"`
	Articles         []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		URL     string `json:"url"`
		Source  string `json:"source"`
	} `json:"articles"`
}

// NewGoogleTrends creates a google trends collector
func NewGoogleTrends(opts Options) *GoogleTrends {
	return &GoogleTrends{
		client:   newClient(opts, source.PlatformGoogleTrends, "https://trends.google.com", browserUserAgent, 2*time.Second),
		Keywords: defaultTrendKeywords,
		Geo:      "US",
	}
}

// Name returns the display name
func (g *GoogleTrends) Name() string { return "Google Trends" }

// Platform returns the platform key
func (g *GoogleTrends) Platform() string { return source.PlatformGoogleTrends }

// Collect fetches the daily trending searches once and keeps those matching a keyword
func (g *GoogleTrends) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	url := fmt.Sprintf("%s/trends/api/dailytrends?hl=en&tz=-480&geo=%s&ns=15", g.baseURL, g.Geo)

	body, err := g.get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape Google Trends data: %w", err)
	}

	// responses carry an anti-XSSI prefix
	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte(")]}'"))
	body = bytes.TrimLeft(body, ",\n")

	var daily dailyTrends
	if err := json.Unmarshal(body, &daily); err != nil {
		return nil, fmt.Errorf("failed to decode Google Trends response: %w", err)
	}
	if len(daily.Default.TrendingSearchesDays) == 0 {
		return nil, nil
	}

	var signals []trend.RawSignal
	for _, ts := range daily.Default.TrendingSearchesDays[0].TrendingSearches {
		if !g.relevant(ts) {
			continue
		}

		var headline, snippet string
		if len(ts.Articles) > 0 {
			headline = ts.Articles[0].Title
			snippet = ts.Articles[0].Snippet
		}

		mentions, ok := parseCount(ts.FormattedTraffic)
		if !ok {
			mentions = defaultTraffic
		}

		articles := make([]map[string]string, 0, 3)
		for i, a := range ts.Articles {
			if i == 3 {
				break
			}
			articles = append(articles, map[string]string{
				"title":  a.Title,
				"url":    a.URL,
				"source": a.Source,
			})
		}

		signals = append(signals, trend.RawSignal{
			Platform: source.PlatformGoogleTrends,
			Content:  truncate(fmt.Sprintf("%s - %s %s", ts.Title.Query, headline, snippet), contentLimit),
			Mentions: mentions,
			Metadata: map[string]interface{}{
				"query":    ts.Title.Query,
				"traffic":  ts.FormattedTraffic,
				"articles": articles,
			},
		})
	}

	g.logger.WithField("count", len(signals)).Debug("Collected trending searches")
	return signals, nil
}

// relevant reports whether the query or any article mentions a keyword
func (g *GoogleTrends) relevant(ts trendingSearch) bool {
	texts := []string{strings.ToLower(ts.Title.Query)}
	for _, a := range ts.Articles {
		texts = append(texts, strings.ToLower(a.Title), strings.ToLower(a.Snippet))
	}

	for _, kw := range g.Keywords {
		kw = strings.ToLower(kw)
		for _, text := range texts {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}
