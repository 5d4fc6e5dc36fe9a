package mailer

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscope/internal/domain/setting"
	"trendscope/internal/domain/trend"
)

func testMailer(deliver deliverFunc) *SMTPMailer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: 587, From: "reports@example.com", FromName: "TrendScope"}, logger)
	m.deliver = deliver
	m.now = func() time.Time { return time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC) }
	return m
}

func TestRender(t *testing.T) {
	d := Digest{
		Date:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Summary: "Denim & mesh dominate <today>",
		Trends: []trend.Trend{
			{Title: "Barrel jeans", TrendScore: 88, Sources: []trend.RawSignal{{Platform: "reddit", Mentions: 120}}},
			{Title: "Mesh flats"},
			{Title: "Quiet luxury"},
			{Title: "Fourth trend"},
		},
		Suggestions: []trend.Suggestion{
			{Title: "Denim drop", Impact: trend.ImpactHigh, Effort: trend.EffortLow, Type: trend.TypeQuickWin},
		},
	}

	msg, err := Render(d)
	require.NoError(t, err)

	assert.Equal(t, "🔥 Daily Cultural Trends Report - Friday, March 1, 2024", msg.Subject)
	assert.Contains(t, msg.HTML, "1. Barrel jeans")
	assert.Contains(t, msg.HTML, "reddit: 120")
	assert.Contains(t, msg.HTML, "Denim &amp; mesh dominate &lt;today&gt;")
	assert.Contains(t, msg.HTML, "impact-high")
	assert.NotContains(t, msg.HTML, "Fourth trend")
	assert.Contains(t, msg.Text, "1. Barrel jeans (Score: 88/100)")
	assert.Contains(t, msg.Text, "- Denim drop (high impact, low effort)")
	assert.NotContains(t, msg.Text, "Fourth trend")
}

func TestSend_OneMessagePerRecipient(t *testing.T) {
	var mu sync.Mutex
	sent := map[string]string{}
	m := testMailer(func(ctx context.Context, from, to string, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		sent[to] = string(msg)
		return nil
	})

	recipients := []setting.Recipient{
		{Email: "a@example.com", Name: "Ana"},
		{Email: "b@example.com"},
	}
	err := m.Send(context.Background(), recipients, Message{Subject: "Daily", HTML: "<p>hi</p>", Text: "hi"})
	require.NoError(t, err)

	require.Len(t, sent, 2)
	body := sent["a@example.com"]
	assert.Contains(t, body, "From: TrendScope <reports@example.com>\r\n")
	assert.Contains(t, body, "To: Ana <a@example.com>\r\n")
	assert.Contains(t, body, "Content-Type: multipart/alternative;")
	assert.Contains(t, body, "text/plain; charset=UTF-8")
	assert.Contains(t, body, "<p>hi</p>")
}

func TestSend_AnyFailureFailsBatch(t *testing.T) {
	m := testMailer(func(ctx context.Context, from, to string, msg []byte) error {
		if to == "bad@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	})

	err := m.Send(context.Background(), []setting.Recipient{
		{Email: "ok@example.com"},
		{Email: "bad@example.com"},
	}, Message{Subject: "Daily"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox unavailable")
}

func TestSend_NotConfigured(t *testing.T) {
	m := NewSMTPMailer(Config{}, nil)

	err := m.Send(context.Background(), []setting.Recipient{{Email: "a@example.com"}}, Message{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSanitizeHeader(t *testing.T) {
	assert.Equal(t, "Subject injectedBcc: x", sanitizeHeader("Subject injected\r\nBcc: x"))
}

func listenerMailer(t *testing.T, ln net.Listener) *SMTPMailer {
	t.Helper()
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewSMTPMailer(Config{Host: host, Port: p, From: "reports@example.com"}, logger)
}

// silentListener accepts connections and never greets
func silentListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	return ln
}

func TestSend_SilentServerHonorsDeadline(t *testing.T) {
	m := listenerMailer(t, silentListener(t))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.Send(ctx, []setting.Recipient{{Email: "a@example.com"}}, Message{Subject: "Daily", Text: "hi"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSend_CancelledSessionReturns(t *testing.T) {
	m := listenerMailer(t, silentListener(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(100*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		done <- m.Send(ctx, []setting.Recipient{{Email: "a@example.com"}}, Message{Subject: "Daily"})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after cancellation")
	}
}

func TestSend_SMTPSession(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		reply := func(line string) { _, _ = conn.Write([]byte(line + "\r\n")) }

		var cmds []string
		reply("220 localhost ready")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			cmds = append(cmds, line)
			switch {
			case strings.HasPrefix(line, "EHLO"):
				reply("250 localhost")
			case strings.HasPrefix(line, "DATA"):
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
				}
				reply("250 queued")
			case strings.HasPrefix(line, "QUIT"):
				reply("221 bye")
				received <- cmds
				return
			default:
				reply("250 ok")
			}
		}
	}()

	m := listenerMailer(t, ln)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = m.Send(ctx, []setting.Recipient{{Email: "a@example.com"}}, Message{Subject: "Daily", Text: "hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	select {
	case cmds := <-received:
		assert.Contains(t, cmds, "MAIL FROM:<reports@example.com>")
		assert.Contains(t, cmds, "RCPT TO:<a@example.com>")
	case <-time.After(2 * time.Second):
		t.Fatal("server did not see QUIT")
	}
}
