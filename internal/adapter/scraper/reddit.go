// internal/adapter/scraper/reddit.go

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

var defaultSubreddits = []string{
	"fashion",
	"streetwear",
	"malefashionadvice",
	"femalefashionadvice",
	"sustainability",
	"thriftstorehauls",
	"frugalmalefashion",
	"womensstreetwear",
}

// Reddit collects hot posts from fashion subreddits
type Reddit struct {
	client
	Subreddits  []string
	MinScore    int
	MinComments int
}

// redditPost is the subset of a listing child we read
type redditPost struct {
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	URL         string  `json:"url"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Created     float64 `json:"created_utc"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// NewReddit creates a reddit collector
func NewReddit(opts Options) *Reddit {
	return &Reddit{
		client:      newClient(opts, source.PlatformReddit, "https://www.reddit.com", botUserAgent, time.Second),
		Subreddits:  defaultSubreddits,
		MinScore:    50,
		MinComments: 10,
	}
}

// Name returns the display name
func (r *Reddit) Name() string { return "Reddit" }

// Platform returns the platform key
func (r *Reddit) Platform() string { return source.PlatformReddit }

// Collect fetches each subreddit's hot listing and keeps well-engaged posts.
// It fails only when no subreddit could be read.
func (r *Reddit) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	var signals []trend.RawSignal
	var lastErr error
	fetched := 0

	for _, sub := range r.Subreddits {
		posts, err := r.hot(ctx, sub)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.WithError(err).WithField("subreddit", sub).Warn("Error fetching subreddit")
			lastErr = err
			continue
		}
		fetched++

		for _, p := range posts {
			if p.Score <= r.MinScore || p.NumComments <= r.MinComments {
				continue
			}
			signals = append(signals, trend.RawSignal{
				Platform:   source.PlatformReddit,
				Content:    truncate(p.Title+" "+p.SelfText, contentLimit),
				Mentions:   p.Score,
				Engagement: intPtr(p.NumComments),
				Metadata: map[string]interface{}{
					"subreddit": p.Subreddit,
					"url":       p.URL,
					"created":   time.Unix(int64(p.Created), 0).UTC().Format(time.RFC3339),
				},
			})
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to scrape Reddit data: %w", lastErr)
	}

	r.logger.WithField("count", len(signals)).Debug("Collected reddit posts")
	return signals, nil
}

func (r *Reddit) hot(ctx context.Context, subreddit string) ([]redditPost, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=25", r.baseURL, subreddit)

	body, err := r.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode Reddit API response: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}
