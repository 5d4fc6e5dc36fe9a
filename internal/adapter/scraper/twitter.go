// internal/adapter/scraper/twitter.go

package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

var defaultTwitterKeywords = []string{
	"sustainable fashion",
	"ethical fashion",
	"slow fashion",
	"thrift fashion",
	"vintage style",
	"fashion sustainability",
	"circular fashion",
	"eco fashion",
	"minimalist fashion",
	"cottagecore",
}

// ErrMissingCredentials is returned when no bearer token is configured
var ErrMissingCredentials = errors.New("Twitter/X API credentials not configured")

// Twitter collects recent tweets per keyword through the v2 search API
type Twitter struct {
	client
	api           *twitter.Client
	token         string
	Keywords      []string
	MinEngagement int
}

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+a.token)
}

// NewTwitter creates a twitter collector authenticated with a bearer token
func NewTwitter(token string, opts Options) *Twitter {
	c := newClient(opts, source.PlatformTwitter, "https://api.twitter.com", botUserAgent, 3*time.Second)
	return &Twitter{
		client: c,
		api: &twitter.Client{
			Authorizer: bearerAuthorizer{token: token},
			Client:     c.http,
			Host:       c.baseURL,
		},
		token:         token,
		Keywords:      defaultTwitterKeywords,
		MinEngagement: 10,
	}
}

// Name returns the display name
func (t *Twitter) Name() string { return "Twitter/X" }

// Platform returns the platform key
func (t *Twitter) Platform() string { return source.PlatformTwitter }

// Collect searches each keyword and keeps tweets above the engagement floor.
// A 429 stops the remaining keywords.
func (t *Twitter) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	if t.token == "" {
		return nil, ErrMissingCredentials
	}

	var signals []trend.RawSignal
	var lastErr error
	searched := 0

	for _, kw := range t.Keywords {
		found, err := t.search(ctx, kw)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if errors.Is(err, ErrRateLimited) {
				t.logger.WithField("keyword", kw).Warn("Twitter rate limit hit, skipping remaining keywords")
				break
			}
			t.logger.WithError(err).WithField("keyword", kw).Warn("Error searching Twitter")
			continue
		}
		searched++
		signals = append(signals, found...)
	}

	if searched == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to scrape Twitter/X data: %w", lastErr)
	}
	return signals, nil
}

func (t *Twitter) search(ctx context.Context, keyword string) ([]trend.RawSignal, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("%q lang:en -is:retweet", keyword)
	resp, err := t.api.TweetRecentSearch(ctx, query, twitter.TweetRecentSearchOpts{
		MaxResults: 20,
		TweetFields: []twitter.TweetField{
			twitter.TweetFieldAuthorID,
			twitter.TweetFieldCreatedAt,
			twitter.TweetFieldPublicMetrics,
			twitter.TweetFieldContextAnnotations,
		},
	})
	if err != nil {
		var apiErr *twitter.ErrorResponse
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("recent search for %q: %w", keyword, err)
	}
	if resp == nil || resp.Raw == nil {
		return nil, nil
	}

	var signals []trend.RawSignal
	for _, tweet := range resp.Raw.Tweets {
		if tweet == nil || tweet.PublicMetrics == nil {
			continue
		}
		m := tweet.PublicMetrics
		engagement := m.Retweets + m.Likes + m.Replies + m.Quotes
		if engagement <= t.MinEngagement {
			continue
		}

		signals = append(signals, trend.RawSignal{
			Platform:   source.PlatformTwitter,
			Content:    truncate(tweet.Text, contentLimit),
			Mentions:   m.Retweets + m.Quotes,
			Engagement: intPtr(engagement),
			Metadata: map[string]interface{}{
				"keyword":    keyword,
				"tweet_id":   tweet.ID,
				"author_id":  tweet.AuthorID,
				"created_at": tweet.CreatedAt,
				"metrics":    m,
				"context":    tweet.ContextAnnotations,
			},
		})
	}
	return signals, nil
}
