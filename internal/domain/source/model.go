package source

import (
	"time"
)

// Status is the health of a data source
type Status string

const (
	StatusActive      Status = "active"
	StatusError       Status = "error"
	StatusRateLimited Status = "rate_limited"
	StatusRunning     Status = "running"
	StatusPending     Status = "pending"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusError, StatusRateLimited, StatusRunning, StatusPending:
		return true
	}
	return false
}

// Platform keys
const (
	PlatformReddit       = "reddit"
	PlatformGoogleTrends = "google-trends"
	PlatformTikTok       = "tiktok"
	PlatformTwitter      = "twitter"
	PlatformFashionBlogs = "fashion-blogs"

	// SystemPlatform is the pseudo-source carrying pipeline-level health
	SystemPlatform = "system"
)

// Source is a monitored platform
type Source struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	Platform     string                 `json:"platform"`
	Enabled      bool                   `json:"enabled"`
	Status       Status                 `json:"status"`
	LastCheck    *time.Time             `json:"lastCheck"`
	ErrorMessage *string                `json:"errorMessage"`
	Config       map[string]interface{} `json:"config,omitempty"`
}

// KnownPlatforms returns the real collector platforms in registration order
func KnownPlatforms() []string {
	return []string{
		PlatformReddit,
		PlatformGoogleTrends,
		PlatformTikTok,
		PlatformTwitter,
		PlatformFashionBlogs,
	}
}

// Defaults returns the sources seeded into an empty store
func Defaults() []Source {
	return []Source{
		{Name: "Reddit", Platform: PlatformReddit, Enabled: true, Status: StatusActive},
		{Name: "Google Trends", Platform: PlatformGoogleTrends, Enabled: true, Status: StatusActive},
		{Name: "TikTok", Platform: PlatformTikTok, Enabled: true, Status: StatusActive},
		{Name: "Twitter/X", Platform: PlatformTwitter, Enabled: true, Status: StatusActive},
		{Name: "Fashion Blogs", Platform: PlatformFashionBlogs, Enabled: true, Status: StatusActive},
		{Name: "Analysis Pipeline", Platform: SystemPlatform, Enabled: true, Status: StatusPending},
	}
}
