// internal/adapter/mailer/smtp.go

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"trendscope/internal/domain/setting"
)

// ErrNotConfigured is returned when no SMTP host or sender is set
var ErrNotConfigured = errors.New("email not configured: set SMTP_HOST and EMAIL_FROM")

// Config contains configuration for the SMTP mailer
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	// From is the envelope sender (MAIL FROM)
	From string
	// FromName is the display name used in the From header
	FromName string
	// MaxConcurrent caps parallel deliveries within one batch
	MaxConcurrent int
}

type deliverFunc func(ctx context.Context, from, to string, msg []byte) error

// SMTPMailer sends one message per recipient over SMTP
type SMTPMailer struct {
	config  Config
	auth    smtp.Auth
	deliver deliverFunc
	logger  logrus.FieldLogger
	now     func() time.Time
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config Config, logger logrus.FieldLogger) *SMTPMailer {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 5
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	m := &SMTPMailer{
		config: config,
		logger: logger.WithField("component", "mailer"),
		now:    time.Now,
	}
	if config.User != "" && config.Password != "" {
		m.auth = smtp.PlainAuth("", config.User, config.Password, config.Host)
	}
	m.deliver = m.smtpDeliver
	return m
}

// Send delivers msg to every recipient. Any failed delivery fails the batch.
func (m *SMTPMailer) Send(ctx context.Context, recipients []setting.Recipient, msg Message) error {
	if m.config.Host == "" || m.config.From == "" {
		return ErrNotConfigured
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.MaxConcurrent)

	for _, r := range recipients {
		r := r
		g.Go(func() error {
			body, err := m.compose(r, msg)
			if err != nil {
				return err
			}
			if err := m.deliver(gctx, m.config.From, r.Email, body); err != nil {
				m.logger.WithError(err).WithField("recipient", r.Email).Error("Failed to send email")
				return fmt.Errorf("error sending to %s: %w", r.Email, err)
			}
			m.logger.WithField("recipient", r.Email).Info("Email sent")
			return nil
		})
	}

	return g.Wait()
}

// compose builds a multipart/alternative message with text and html parts
func (m *SMTPMailer) compose(r setting.Recipient, msg Message) ([]byte, error) {
	from := m.config.From
	if strings.TrimSpace(m.config.FromName) != "" {
		from = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	headers := []string{
		"From: " + sanitizeHeader(from),
		"To: " + sanitizeHeader(r.Address()),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(msg.Subject)),
		"Date: " + m.now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", mw.Boundary()),
		"",
		"",
	}

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, fmt.Errorf("error creating mime part: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("error writing mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("error closing mime writer: %w", err)
	}

	return append([]byte(strings.Join(headers, "\r\n")), body.Bytes()...), nil
}

// smtpDeliver runs one SMTP session bounded by ctx. The connection carries
// the ctx deadline and is closed when ctx is cancelled.
func (m *SMTPMailer) smtpDeliver(ctx context.Context, from, to string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return fmt.Errorf("set deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := m.session(conn, from, to, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp session: %w", ctxErr)
		}
		return err
	}
	return nil
}

func (m *SMTPMailer) session(conn net.Conn, from, to string, msg []byte) error {
	c, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		if err := c.Auth(m.auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return c.Quit()
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
