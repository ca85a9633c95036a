// pantry/email/email.go

// Package email sends single transactional messages through a pluggable
// Transport: SMTP (github.com/wneessen/go-mail), the Postmark HTTP API, or a
// development transport that writes messages to disk.
//
// A Transport owns no long-lived connection. Verify and Send each open and
// release their own session, so a caller can construct, verify, use and
// drop a transport within one request.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Transport kinds accepted by Config.Kind.
const (
	KindSMTP     = "smtp"
	KindPostmark = "postmark"
	KindDev      = "dev"
)

// DefaultTimeout bounds dial, greeting and socket activity.
const DefaultTimeout = 10 * time.Second

// ErrNotConfigured is returned by New when the selected transport lacks
// credentials.
var ErrNotConfigured = errors.New("email: transport not configured")

// Message is a single HTML message. The sender address is the transport's
// account identity; FromName is only the display name.
type Message struct {
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return errors.New("email: no recipient specified")
	case strings.TrimSpace(m.HTMLBody) == "":
		return errors.New("email: message body is empty")
	}
	return nil
}

// Transport delivers messages.
type Transport interface {
	// Name is the transport kind, used in logs and metric labels.
	Name() string
	// Verify connects and authenticates without sending anything.
	Verify(ctx context.Context) error
	// Send delivers msg in one session.
	Send(ctx context.Context, msg Message) error
}

// Config is the process-wide mail configuration for every transport kind.
// Only the fields of the selected Kind are consulted.
type Config struct {
	Kind    string
	Timeout time.Duration

	// smtp
	Host     string
	Port     int
	Username string
	Password string

	// postmark
	ServerToken  string
	AccountToken string
	FromAddress  string

	// dev
	Dir string
}

// Credentials reports whether the account identity and the secret for the
// selected transport are present. The dev transport needs neither.
func (c Config) Credentials() (hasUser, hasSecret bool) {
	switch c.kind() {
	case KindPostmark:
		return strings.TrimSpace(c.FromAddress) != "", strings.TrimSpace(c.ServerToken) != ""
	case KindDev:
		return true, true
	default:
		return strings.TrimSpace(c.Username) != "", strings.TrimSpace(c.Password) != ""
	}
}

// Configured reports whether both credentials are present.
func (c Config) Configured() bool {
	u, s := c.Credentials()
	return u && s
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// New builds the transport selected by cfg.Kind (smtp when empty).
func New(cfg Config) (Transport, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, cfg.kind())
	}
	switch cfg.kind() {
	case KindSMTP:
		return NewSMTPTransport(cfg)
	case KindPostmark:
		return NewPostmarkTransport(cfg)
	case KindDev:
		return NewDevTransport(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("email: unknown transport %q", cfg.Kind)
	}
}

func (c Config) kind() string {
	if c.Kind == "" {
		return KindSMTP
	}
	return strings.ToLower(c.Kind)
}
