package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(srv *httptest.Server) Options {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return Options{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Interval:   time.Millisecond,
		Logger:     logger,
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1,000", 1000, true},
		{"200K+", 200000, true},
		{"2.5M", 2500000, true},
		{"1b", 1000000000, true},
		{"", 0, false},
		{"lots", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseCount(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "short", truncate("  short ", 10))
}

func TestReddit_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/r/fashion/hot.json":
			fmt.Fprint(w, `{"data":{"children":[
				{"data":{"title":"Barrel jeans are everywhere","selftext":"thoughts?","score":120,"num_comments":40,"subreddit":"fashion","url":"https://x","created_utc":1700000000}},
				{"data":{"title":"Low effort","selftext":"","score":10,"num_comments":2,"subreddit":"fashion"}}
			]}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	r := NewReddit(testOptions(srv))
	r.Subreddits = []string{"fashion", "broken"}

	signals, err := r.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "reddit", s.Platform)
	assert.Equal(t, "Barrel jeans are everywhere thoughts?", s.Content)
	assert.Equal(t, 120, s.Mentions)
	require.NotNil(t, s.Engagement)
	assert.Equal(t, 40, *s.Engagement)
	assert.Equal(t, "fashion", s.Metadata["subreddit"])
}

func TestReddit_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewReddit(testOptions(srv))
	r.Subreddits = []string{"fashion", "streetwear"}

	_, err := r.Collect(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestGoogleTrends_Collect(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/trends/api/dailytrends", r.URL.Path)
		fmt.Fprint(w, ")]}',\n"+`{"default":{"trendingSearchesDays":[{"trendingSearches":[
			{"title":{"query":"Cottagecore dresses"},"formattedTraffic":"200K+","articles":[{"title":"Why cottagecore is back","snippet":"Prairie looks return","url":"https://a","source":"Mag"}]},
			{"title":{"query":"Football scores"},"formattedTraffic":"2M+","articles":[{"title":"Weekend results","snippet":"All the goals"}]}
		]}]}}`)
	}))
	defer srv.Close()

	g := NewGoogleTrends(testOptions(srv))

	signals, err := g.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	s := signals[0]
	assert.Equal(t, "google-trends", s.Platform)
	assert.Equal(t, 200000, s.Mentions)
	assert.Equal(t, "Cottagecore dresses - Why cottagecore is back Prairie looks return", s.Content)
	assert.Equal(t, "Cottagecore dresses", s.Metadata["query"])
}

func TestTikTok_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tag/cottagecore" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<html><head>
			<meta name="description" content="Watch #cottagecore videos. 2.5M views">
			<script type="application/ld+json">{"name":"cottagecore","description":"Soft rural aesthetics"}</script>
			<script type="application/ld+json">not json</script>
		</head><body></body></html>`)
	}))
	defer srv.Close()

	tt := NewTikTok(testOptions(srv))
	tt.Hashtags = []string{"cottagecore", "missing"}

	signals, err := tt.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "tiktok", s.Platform)
	assert.Equal(t, 2500000, s.Mentions)
	assert.Equal(t, "TikTok hashtag #cottagecore trending with 2.5M views. Soft rural aesthetics", s.Content)
	assert.Equal(t, "2.5M", s.Metadata["viewCount"])
}

func TestTwitter_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"id":"1","text":"Slow fashion is the only fashion now","author_id":"9","public_metrics":{"retweet_count":5,"reply_count":3,"like_count":10,"quote_count":1}},
			{"id":"2","text":"meh","public_metrics":{"retweet_count":0,"reply_count":0,"like_count":1,"quote_count":0}}
		],"meta":{"result_count":2}}`)
	}))
	defer srv.Close()

	tw := NewTwitter("token", testOptions(srv))
	tw.Keywords = []string{"slow fashion"}

	signals, err := tw.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "twitter", s.Platform)
	assert.Equal(t, 6, s.Mentions)
	require.NotNil(t, s.Engagement)
	assert.Equal(t, 19, *s.Engagement)
}

func TestTwitter_RateLimitStopsSearch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"title":"Too Many Requests","detail":"Too Many Requests","type":"about:blank","status":429}`)
	}))
	defer srv.Close()

	tw := NewTwitter("token", testOptions(srv))
	tw.Keywords = []string{"a", "b", "c"}

	_, err := tw.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTwitter_MissingToken(t *testing.T) {
	tw := NewTwitter("", Options{})

	_, err := tw.Collect(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFashionBlogs_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<article><h2>Vintage denim is trending again</h2><p>Thrift stores report demand.</p><a href="/denim">more</a></article>
			<article><h2>Quarterly earnings roundup</h2><p>Numbers only.</p></article>
			<article><h2>Short</h2></article>
			<div class="share-count">120</div>
			<div class="social-bar">80</div>
		</body></html>`)
	}))
	defer srv.Close()

	f := NewFashionBlogs(testOptions(srv))
	f.Blogs = []Blog{{Name: "Test Mag", Path: "https://example.com/fashion"}}

	signals, err := f.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "fashion-blogs", s.Platform)
	assert.Equal(t, "Vintage denim is trending again - Thrift stores report demand.", s.Content)
	assert.Equal(t, 100, s.Mentions)
	assert.Equal(t, "Test Mag", s.Metadata["source"])
	assert.Equal(t, srv.URL+"/denim", s.Metadata["url"])
}
