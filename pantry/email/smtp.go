// pantry/email/smtp.go
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPTransport sends through an SMTP relay using go-mail. Port 465 uses
// implicit TLS; any other port upgrades with STARTTLS when the server offers it.
type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration

	implicitTLS bool
	tlsConfig   *tls.Config
}

// NewSMTPTransport validates the smtp fields of cfg. Host defaults to
// smtp.gmail.com and Port to 587.
func NewSMTPTransport(cfg Config) (*SMTPTransport, error) {
	t := &SMTPTransport{
		host:     strings.TrimSpace(cfg.Host),
		port:     cfg.Port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		timeout:  cfg.timeout(),
	}
	if t.host == "" {
		t.host = "smtp.gmail.com"
	}
	if t.port == 0 {
		t.port = 587
	}
	if t.port < 1 || t.port > 65535 {
		return nil, fmt.Errorf("email: invalid smtp port %d", t.port)
	}
	if t.username == "" || t.password == "" {
		return nil, fmt.Errorf("%w: smtp username and password are required", ErrNotConfigured)
	}
	t.implicitTLS = t.port == 465
	t.tlsConfig = &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}
	return t, nil
}

func (t *SMTPTransport) Name() string { return KindSMTP }

// ImplicitTLS reports whether the transport dials straight into TLS.
func (t *SMTPTransport) ImplicitTLS() bool { return t.implicitTLS }

// Verify dials, greets, negotiates TLS and authenticates, then quits.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, err := t.client()
	if err != nil {
		return classify("verify", err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := c.DialWithContext(ctx); err != nil {
		return classify("verify", err)
	}
	if err := c.Close(); err != nil {
		return classify("verify", err)
	}
	return nil
}

// Send delivers msg in a fresh session that is closed on every path.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: err}
	}
	m, err := t.compose(msg)
	if err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: err}
	}
	c, err := t.client()
	if err != nil {
		return classify("send", err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return classify("send", err)
	}
	return nil
}

func (t *SMTPTransport) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, t.username); err != nil {
			return nil, fmt.Errorf("invalid from address: %w", err)
		}
	} else if err := m.From(t.username); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	return m, nil
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.port),
		mail.WithTimeout(t.timeout),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.username),
		mail.WithPassword(t.password),
		mail.WithDialContextFunc(t.dial),
		mail.WithTLSConfig(t.tlsConfig),
	}
	if t.ImplicitTLS() {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	return mail.NewClient(t.host, opts...)
}

// dial bounds the greeting and every later read/write by the transport
// timeout. go-mail only bounds the TCP connect on its own.
func (t *SMTPTransport) dial(ctx context.Context, network, addr string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: t.timeout}
	var (
		conn net.Conn
		err  error
	)
	if t.ImplicitTLS() {
		td := &tls.Dialer{NetDialer: nd, Config: t.tlsConfig}
		conn, err = td.DialContext(ctx, network, addr)
	} else {
		conn, err = nd.DialContext(ctx, network, addr)
	}
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
		_ = conn.Close()
		return nil, errors.Join(errors.New("set smtp deadline"), err)
	}
	return conn, nil
}
