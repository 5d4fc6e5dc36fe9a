package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscope/internal/domain/source"
	"trendscope/internal/domain/trend"
)

type stubCollector struct {
	name     string
	platform string
	items    []trend.RawSignal
	err      error
	calls    int32
	block    bool
}

func (s *stubCollector) Name() string     { return s.name }
func (s *stubCollector) Platform() string { return s.platform }

func (s *stubCollector) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.items, s.err
}

type stubLookup map[string]bool

func (l stubLookup) SourceByPlatform(ctx context.Context, platform string) (*source.Source, error) {
	enabled, ok := l[platform]
	if !ok {
		return nil, errors.New("not found")
	}
	return &source.Source{Platform: platform, Enabled: enabled}, nil
}

func signal(platform, content string) trend.RawSignal {
	return trend.RawSignal{Platform: platform, Content: content, Mentions: 10}
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestCollectAll_PartialFailure(t *testing.T) {
	a1 := &stubCollector{name: "Adapter1", platform: "one", items: []trend.RawSignal{signal("one", "first adapter signal")}}
	a2 := &stubCollector{name: "Adapter2", platform: "two", err: errors.New("rate limited")}
	a3 := &stubCollector{name: "Adapter3", platform: "three", items: []trend.RawSignal{signal("three", "third adapter signal")}}

	agg := NewAggregator([]Collector{a1, a2, a3}, Config{}, quietLogger())
	result := agg.CollectAll(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, []string{"Adapter2 scraping failed: rate limited"}, result.Errors)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "one", result.Items[0].Platform)
	assert.Equal(t, "three", result.Items[1].Platform)
}

func TestCollectAll_FailureSubsets(t *testing.T) {
	// every subset of three adapters configured to fail
	for mask := 0; mask < 8; mask++ {
		t.Run(fmt.Sprintf("mask=%03b", mask), func(t *testing.T) {
			var collectors []Collector
			wantItems, wantErrors := 0, 0
			for i := 0; i < 3; i++ {
				c := &stubCollector{name: fmt.Sprintf("A%d", i), platform: fmt.Sprintf("p%d", i)}
				if mask&(1<<i) != 0 {
					c.err = errors.New("down")
					wantErrors++
				} else {
					c.items = []trend.RawSignal{signal(c.platform, "a perfectly fine signal")}
					wantItems++
				}
				collectors = append(collectors, c)
			}

			result := NewAggregator(collectors, Config{MaxConcurrent: 2}, quietLogger()).CollectAll(context.Background())

			assert.Len(t, result.Items, wantItems)
			assert.Len(t, result.Errors, wantErrors)
			assert.Equal(t, wantItems > 0, result.Success)
		})
	}
}

func TestCollectAll_EmptyIsSuccessWithoutItems(t *testing.T) {
	agg := NewAggregator([]Collector{
		&stubCollector{name: "A", platform: "a"},
		&stubCollector{name: "B", platform: "b"},
	}, Config{}, quietLogger())

	result := agg.CollectAll(context.Background())
	assert.True(t, result.Success)
	assert.Empty(t, result.Items)
	assert.Empty(t, result.Errors)
}

func TestCollectAll_SourceTimeout(t *testing.T) {
	slow := &stubCollector{name: "Slow", platform: "slow", block: true}
	fast := &stubCollector{name: "Fast", platform: "fast", items: []trend.RawSignal{signal("fast", "quick enough signal")}}

	agg := NewAggregator([]Collector{slow, fast}, Config{SourceTimeout: 20 * time.Millisecond}, quietLogger())
	result := agg.CollectAll(context.Background())

	assert.True(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Slow scraping failed: "))
}

func TestCollectAll_SkipsDisabledSources(t *testing.T) {
	on := &stubCollector{name: "On", platform: "on", items: []trend.RawSignal{signal("on", "enabled source item")}}
	off := &stubCollector{name: "Off", platform: "off", err: errors.New("should not run")}

	agg := NewAggregator([]Collector{on, off}, Config{}, quietLogger(),
		WithSourceFilter(stubLookup{"on": true, "off": false}))
	result := agg.CollectAll(context.Background())

	assert.Equal(t, int32(0), atomic.LoadInt32(&off.calls))
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, result.Errors)
}

func TestCollectAll_RecoversPanics(t *testing.T) {
	agg := NewAggregator([]Collector{panicCollector{}}, Config{}, quietLogger())

	result := agg.CollectAll(context.Background())
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Panicky scraping failed: panic")
}

type panicCollector struct{}

func (panicCollector) Name() string     { return "Panicky" }
func (panicCollector) Platform() string { return "panic" }
func (panicCollector) Collect(ctx context.Context) ([]trend.RawSignal, error) {
	panic("kaboom")
}

func TestCollectSingle(t *testing.T) {
	tw := &stubCollector{name: "Twitter/X", platform: source.PlatformTwitter, items: []trend.RawSignal{
		signal(source.PlatformTwitter, "a tweet about slow fashion"),
		signal(source.PlatformTwitter, "short"),
	}}
	other := &stubCollector{name: "Reddit", platform: source.PlatformReddit}

	agg := NewAggregator([]Collector{other, tw}, Config{}, quietLogger())

	items, err := agg.CollectSingle(context.Background(), "X")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tw.calls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&other.calls))

	_, err = agg.CollectSingle(context.Background(), "myspace")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.EqualError(t, err, "unsupported platform: myspace")
}

func TestCollectSingle_DisabledSource(t *testing.T) {
	off := &stubCollector{name: "Off", platform: "off", items: []trend.RawSignal{signal("off", "item from a disabled source")}}

	agg := NewAggregator([]Collector{off}, Config{}, quietLogger(),
		WithSourceFilter(stubLookup{"off": false}))

	items, err := agg.CollectSingle(context.Background(), "off")
	assert.ErrorIs(t, err, ErrSourceDisabled)
	assert.Nil(t, items)
	assert.Equal(t, int32(0), atomic.LoadInt32(&off.calls))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		item trend.RawSignal
		keep bool
	}{
		{"too short", trend.RawSignal{Platform: "p", Content: "ok", Mentions: 5}, false},
		{"fifty chars", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 50), Mentions: 5}, true},
		{"lower bound", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 10)}, true},
		{"upper bound", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 1000)}, true},
		{"too long", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 1001)}, false},
		{"runes not bytes", trend.RawSignal{Platform: "p", Content: strings.Repeat("é", 10)}, true},
		{"negative mentions", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 20), Mentions: -1}, false},
		{"max mentions", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 20), Mentions: MaxMentions}, true},
		{"over mentions", trend.RawSignal{Platform: "p", Content: strings.Repeat("x", 20), Mentions: MaxMentions + 1}, false},
		{"no platform", trend.RawSignal{Content: strings.Repeat("x", 20)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate([]trend.RawSignal{tt.item})
			assert.Equal(t, tt.keep, len(got) == 1)
		})
	}
}
