// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Events buffered per client before new ones are dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
		SendBuffer:     256,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventClient relays NATS pipeline events to one dashboard connection
type eventClient struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	sub    *nats.Subscription
	config WebSocketConfig
	logger logrus.FieldLogger
}

// EventStreamHandler upgrades to a WebSocket and streams every event published
// under subject (typically the publisher's wildcard) until the client leaves.
func EventStreamHandler(natsConn *nats.Conn, subject string, logger logrus.FieldLogger) http.HandlerFunc {
	rs := newResponder(logger, "event_stream")

	return func(w http.ResponseWriter, r *http.Request) {
		if natsConn == nil {
			rs.respondWithError(w, r, http.StatusServiceUnavailable, "Event stream unavailable", nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			rs.logger.WithError(err).Warn("Failed to upgrade to WebSocket")
			return
		}

		config := DefaultWebSocketConfig()
		client := &eventClient{
			conn:   conn,
			send:   make(chan []byte, config.SendBuffer),
			done:   make(chan struct{}),
			config: config,
			logger: rs.logger.WithField("remote", r.RemoteAddr),
		}

		client.sub, err = natsConn.Subscribe(subject, client.enqueue)
		if err != nil {
			client.logger.WithError(err).Error("Failed to subscribe to events")
			client.close()
			return
		}

		welcome, _ := json.Marshal(map[string]interface{}{
			"type":    "welcome",
			"subject": subject,
			"time":    time.Now().UTC(),
		})
		client.enqueue(&nats.Msg{Data: welcome})

		go client.writePump()
		go client.readPump()

		client.logger.Info("Event stream client connected")
	}
}

// enqueue hands an event to the write pump, dropping it when the client lags
func (c *eventClient) enqueue(msg *nats.Msg) {
	select {
	case <-c.done:
	case c.send <- msg.Data:
	default:
		c.logger.Warn("Event stream client too slow, dropping event")
	}
}

// readPump discards client input and detects disconnects
func (c *eventClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Warn("WebSocket error")
			}
			return
		}
	}
}

// writePump writes queued events and keeps the connection alive with pings
func (c *eventClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close unsubscribes and closes the connection once
func (c *eventClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.sub != nil {
			_ = c.sub.Unsubscribe()
		}
		_ = c.conn.Close()
		c.logger.Info("Event stream client disconnected")
	})
}
