package setting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Keys read by the pipeline
const (
	KeyScrapingInterval = "scraping_interval"
	KeyDailyReportTime  = "daily_report_time"
	KeySchedulerEnabled = "scheduler_enabled"
	KeyEmailRecipients  = "email_recipients"
	KeyBrandCategory    = "brand_category"
	KeyTargetAudience   = "target_audience"
	KeyFocusKeywords    = "focus_keywords"
)

// Default cadences
const (
	DefaultScrapingInterval = "0 */2 * * *"
	DefaultDailyReportTime  = "0 6 * * *"
)

// Setting is a keyed JSON value
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Recipient is one entry of the email_recipients setting
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Address formats the recipient for a To header
func (r Recipient) Address() string {
	if strings.TrimSpace(r.Name) == "" {
		return r.Email
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Email)
}

// Decode unmarshals the value into v
func (s Setting) Decode(v interface{}) error {
	if len(s.Value) == 0 {
		return fmt.Errorf("setting %s has no value", s.Key)
	}
	if err := json.Unmarshal(s.Value, v); err != nil {
		return fmt.Errorf("error decoding setting %s: %w", s.Key, err)
	}
	return nil
}

// String returns the value as a string, or def when it is not a non-empty string
func (s Setting) String(def string) string {
	var v string
	if err := s.Decode(&v); err != nil || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Bool returns the value as a bool, or def when it is not a bool
func (s Setting) Bool(def bool) bool {
	var v bool
	if err := s.Decode(&v); err != nil {
		return def
	}
	return v
}

// Recipients decodes the value as a recipient list.
// Plain string entries are accepted as bare addresses.
func (s Setting) Recipients() ([]Recipient, error) {
	var recipients []Recipient
	if err := s.Decode(&recipients); err == nil {
		return filterRecipients(recipients), nil
	}

	var addresses []string
	if err := s.Decode(&addresses); err != nil {
		return nil, err
	}
	for _, a := range addresses {
		recipients = append(recipients, Recipient{Email: a})
	}
	return filterRecipients(recipients), nil
}

func filterRecipients(in []Recipient) []Recipient {
	out := make([]Recipient, 0, len(in))
	for _, r := range in {
		r.Email = strings.TrimSpace(r.Email)
		if r.Email == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Default is a seeded key/value pair
type Default struct {
	Key   string
	Value interface{}
}

// Defaults returns the settings seeded into an empty store
func Defaults() []Default {
	return []Default{
		{Key: KeyEmailRecipients, Value: []Recipient{}},
		{Key: KeyDailyReportTime, Value: DefaultDailyReportTime},
		{Key: KeyScrapingInterval, Value: DefaultScrapingInterval},
		{Key: KeySchedulerEnabled, Value: true},
		{Key: KeyBrandCategory, Value: "fashion"},
		{Key: KeyTargetAudience, Value: "Gen Z, Millennials, Sustainable fashion enthusiasts"},
		{Key: KeyFocusKeywords, Value: []string{
			"sustainable fashion",
			"ethical clothing",
			"minimalist style",
			"cottagecore",
			"vintage fashion",
		}},
	}
}
