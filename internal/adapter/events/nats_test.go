package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscope/internal/domain/report"
	"trendscope/internal/domain/trend"
)

func TestPublisher_WithoutConnectionDropsEvents(t *testing.T) {
	p := NewPublisher(nil, "", nil)

	assert.NoError(t, p.PublishTrend(context.Background(), "run", trend.Trend{Title: "Gorpcore"}))
	assert.NoError(t, p.PublishReport(context.Background(), "run", report.Report{Status: report.StatusFailed}))

	var nilPublisher *Publisher
	assert.NoError(t, nilPublisher.PublishTrend(context.Background(), "run", trend.Trend{}))
}

func TestPublisher_Subjects(t *testing.T) {
	p := NewPublisher(nil, "trendscope", nil)

	assert.Equal(t, "trendscope.trend.detected", p.Subject(TypeTrendDetected))
	assert.Equal(t, "trendscope.>", p.Wildcard())
}

func TestPublisher_Encode(t *testing.T) {
	p := NewPublisher(nil, "trendscope", nil)
	fixed := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	data, err := p.encode(TypeTrendDetected, "run-1", trend.Trend{ID: 3, Title: "Gorpcore"})
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TypeTrendDetected, ev.Type)
	assert.Equal(t, "run-1", ev.RunID)
	assert.True(t, fixed.Equal(ev.Timestamp))

	var got trend.Trend
	require.NoError(t, json.Unmarshal(ev.Data, &got))
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, "Gorpcore", got.Title)
}
