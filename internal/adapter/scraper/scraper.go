// internal/adapter/scraper/scraper.go

package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	botUserAgent     = "TrendScope/1.0 (Cultural Trends Monitor)"

	maxBodyBytes = 5 << 20
	contentLimit = 500
)

// ErrRateLimited is returned when a platform answers 429
var ErrRateLimited = errors.New("rate limited")

// Options configures a collector. Zero values fall back to per-platform defaults.
type Options struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
	// Interval is the minimum spacing between requests to the platform
	Interval time.Duration
	Logger   logrus.FieldLogger
}

// StatusError is a non-2xx response from a platform
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status code %d", e.URL, e.StatusCode)
}

// client holds the shared HTTP plumbing for every collector
type client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	logger    logrus.FieldLogger
}

func newClient(opts Options, platform, baseURL, userAgent string, interval time.Duration) client {
	c := client{
		http:      opts.HTTPClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		logger:    opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.UserAgent != "" {
		c.userAgent = opts.UserAgent
	}
	if opts.Interval > 0 {
		interval = opts.Interval
	}
	c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	c.logger = c.logger.WithField("platform", platform)
	return c
}

// get waits for the limiter, performs a GET and returns the body
func (c *client) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s: %w", url, ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, nil
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// parseCount reads figures like "2.5M", "200K+", "1,000" or "3B"
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(strings.NewReplacer(",", "", "+", "").Replace(s))
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1e3
		s = s[:len(s)-1]
	case "M":
		multiplier = 1e6
		s = s[:len(s)-1]
	case "B":
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return int(n * multiplier), true
}

// intPtr returns a pointer to n
func intPtr(n int) *int {
	return &n
}
