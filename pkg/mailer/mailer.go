package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
)

// Config holds the SMTP relay settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Enabled reports whether enough is configured to send mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Client sends plain-text notification mail through an SMTP relay
type Client struct {
	cfg Config
}

// NewClient creates a new SMTP client
func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Client{cfg: cfg}
}

// Build renders an RFC 5322 message with a single text/plain part.
func Build(from, to *mail.Address, subject, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Send delivers one message to a single recipient.
func (c *Client) Send(ctx context.Context, toAddress, toName, subject, body string) error {
	msg, err := Build(
		&mail.Address{Name: c.cfg.FromName, Address: c.cfg.From},
		&mail.Address{Name: toName, Address: toAddress},
		subject, body, time.Now(),
	)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	if !c.cfg.TLS {
		if err := smtp.SendMail(addr, auth, c.cfg.From, []string{toAddress}, msg); err != nil {
			return fmt.Errorf("send mail to %s: %w", toAddress, err)
		}
		return nil
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: c.cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(toAddress); err != nil {
		return fmt.Errorf("failed to add recipient %s: %w", toAddress, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}

	log.Printf("[Mailer] Sent %q to %s", subject, toAddress)
	return client.Quit()
}
