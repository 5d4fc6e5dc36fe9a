// internal/adapter/scraper/fashionblogs.go

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

// Blog is a fashion publication scraped for headlines
type Blog struct {
	Name string
	Path string
}

var defaultBlogs = []Blog{
	{Name: "Vogue", Path: "https://www.vogue.com/fashion"},
	{Name: "Elle", Path: "https://www.elle.com/fashion/"},
	{Name: "Harper's Bazaar", Path: "https://www.harpersbazaar.com/fashion/"},
	{Name: "Refinery29", Path: "https://www.refinery29.com/en-us/fashion"},
	{Name: "Who What Wear", Path: "https://www.whowhatwear.com/"},
}

var blogTrendKeywords = []string{
	"trending", "trend", "popular", "viral", "buzz", "hot",
	"sustainable", "eco-friendly", "ethical", "conscious",
	"vintage", "thrift", "secondhand", "upcycle",
	"minimalist", "capsule", "slow fashion",
	"cottagecore", "y2k", "grunge", "preppy",
}

// defaultSocialCount is the mention estimate when a page shows no share counts
const defaultSocialCount = 50

var digitsPattern = regexp.MustCompile(`\d+`)

// FashionBlogs collects trend-related headlines from fashion publications
type FashionBlogs struct {
	client
	Blogs []Blog
}

type article struct {
	headline string
	summary  string
	link     string
}

// NewFashionBlogs creates a fashion blog collector.
// When opts.BaseURL is set, blog paths are resolved against it.
func NewFashionBlogs(opts Options) *FashionBlogs {
	return &FashionBlogs{
		client: newClient(opts, source.PlatformFashionBlogs, "", browserUserAgent, 2*time.Second),
		Blogs:  defaultBlogs,
	}
}

// Name returns the display name
func (f *FashionBlogs) Name() string { return "Fashion Blogs" }

// Platform returns the platform key
func (f *FashionBlogs) Platform() string { return source.PlatformFashionBlogs }

// Collect reads each blog and emits relevant articles.
// It fails only when no blog could be read.
func (f *FashionBlogs) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	var signals []trend.RawSignal
	var lastErr error
	fetched := 0

	for _, blog := range f.Blogs {
		found, err := f.blog(ctx, blog)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.WithError(err).WithField("blog", blog.Name).Warn("Error scraping blog")
			lastErr = err
			continue
		}
		fetched++
		signals = append(signals, found...)
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to scrape fashion blog data: %w", lastErr)
	}
	return signals, nil
}

func (f *FashionBlogs) resolve(path string) string {
	if f.baseURL == "" {
		return path
	}
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	return f.baseURL + "/" + strings.TrimLeft(u.Path, "/")
}

func (f *FashionBlogs) blog(ctx context.Context, blog Blog) ([]trend.RawSignal, error) {
	pageURL := f.resolve(blog.Path)

	body, err := f.get(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", blog.Name, err)
	}

	origin := ""
	if u, err := url.Parse(pageURL); err == nil {
		origin = u.Scheme + "://" + u.Host
	}

	var articles []article
	doc.Find(`article, .article, [class*="article"]`).Each(func(_ int, s *goquery.Selection) {
		headline := strings.TrimSpace(s.Find("h1, h2, h3").First().Text())
		if len([]rune(headline)) <= 10 {
			return
		}
		link, _ := s.Find("a").First().Attr("href")
		if link != "" && !strings.HasPrefix(link, "http") {
			link = origin + link
		}
		articles = append(articles, article{
			headline: headline,
			summary:  truncate(s.Find("p").First().Text(), 200),
			link:     link,
		})
	})

	var socialCounts []int
	doc.Find(`[class*="social"], [class*="share"]`).Each(func(_ int, s *goquery.Selection) {
		if m := digitsPattern.FindString(s.Text()); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				socialCounts = append(socialCounts, n)
			}
		}
	})

	mentions := defaultSocialCount
	if len(socialCounts) > 0 {
		total := 0
		for _, n := range socialCounts {
			total += n
		}
		mentions = total / len(socialCounts)
	}
	shownCounts := socialCounts
	if len(shownCounts) > 3 {
		shownCounts = shownCounts[:3]
	}

	if len(articles) > 10 {
		articles = articles[:10]
	}

	var signals []trend.RawSignal
	for _, a := range articles {
		if !mentionsTrend(a.headline + " " + a.summary) {
			continue
		}
		signals = append(signals, trend.RawSignal{
			Platform: source.PlatformFashionBlogs,
			Content:  truncate(a.headline+" - "+a.summary, contentLimit),
			Mentions: mentions,
			Metadata: map[string]interface{}{
				"source":       blog.Name,
				"url":          a.link,
				"headline":     a.headline,
				"socialCounts": shownCounts,
			},
		})
	}
	return signals, nil
}

func mentionsTrend(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range blogTrendKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
