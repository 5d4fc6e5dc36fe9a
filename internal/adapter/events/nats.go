// internal/adapter/events/nats.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"trendscope/internal/domain/report"
	"trendscope/internal/domain/trend"
)

// Event types
const (
	TypeTrendDetected = "trend.detected"
	TypeReportSent    = "report.sent"
	TypeReportFailed  = "report.failed"
)

// Config contains configuration for the NATS connection
type Config struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	Topic          string
}

// Event is the envelope published for every pipeline event
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	RunID     string          `json:"runId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Connect opens a NATS connection with reconnect logging
func Connect(cfg Config, logger logrus.FieldLogger) (*nats.Conn, error) {
	logger = logger.WithField("component", "nats")

	options := []nats.Option{
		nats.Name("trendscope"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// Publisher emits pipeline events. A Publisher without a connection drops events.
type Publisher struct {
	conn   *nats.Conn
	topic  string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewPublisher creates a publisher on conn; conn may be nil
func NewPublisher(conn *nats.Conn, topic string, logger logrus.FieldLogger) *Publisher {
	if topic == "" {
		topic = "trendscope"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Publisher{
		conn:   conn,
		topic:  topic,
		logger: logger.WithField("component", "events"),
		now:    time.Now,
	}
}

// Subject returns the full subject for an event type
func (p *Publisher) Subject(eventType string) string {
	return fmt.Sprintf("%s.%s", p.topic, eventType)
}

// Wildcard returns the subject matching every event of this publisher
func (p *Publisher) Wildcard() string {
	return p.topic + ".>"
}

// PublishTrend announces a newly persisted trend
func (p *Publisher) PublishTrend(ctx context.Context, runID string, t trend.Trend) error {
	return p.publish(TypeTrendDetected, runID, t)
}

// PublishReport announces a recorded report, as sent or failed
func (p *Publisher) PublishReport(ctx context.Context, runID string, r report.Report) error {
	eventType := TypeReportSent
	if r.Status == report.StatusFailed {
		eventType = TypeReportFailed
	}
	return p.publish(eventType, runID, r)
}

func (p *Publisher) publish(eventType, runID string, payload interface{}) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := p.encode(eventType, runID, payload)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.Subject(eventType), data); err != nil {
		return fmt.Errorf("error publishing %s event: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) encode(eventType, runID string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling %s payload: %w", eventType, err)
	}

	data, err := json.Marshal(Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: p.now(),
		Data:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling %s event: %w", eventType, err)
	}
	return data, nil
}
