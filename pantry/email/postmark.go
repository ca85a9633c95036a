// pantry/email/postmark.go
package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/mail"
	"strings"

	"github.com/mrz1836/postmark"
)

// Postmark API error code for a bad or missing server token.
const postmarkInvalidToken = 10

// PostmarkTransport sends through Postmark's transactional API. Every call is
// a single HTTPS request, so there is no session to release.
type PostmarkTransport struct {
	client *postmark.Client
	from   string
}

// NewPostmarkTransport requires cfg.ServerToken and cfg.FromAddress (a
// confirmed Postmark sender signature).
func NewPostmarkTransport(cfg Config) (*PostmarkTransport, error) {
	if strings.TrimSpace(cfg.ServerToken) == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("%w: postmark from address is required", ErrNotConfigured)
	}

	c := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	c.HTTPClient = &http.Client{Timeout: cfg.timeout()}
	return &PostmarkTransport{client: c, from: strings.TrimSpace(cfg.FromAddress)}, nil
}

// WithBaseURL points the client at another API root. Used by tests.
func (t *PostmarkTransport) WithBaseURL(u string) *PostmarkTransport {
	t.client.BaseURL = strings.TrimRight(u, "/")
	return t
}

func (t *PostmarkTransport) Name() string { return KindPostmark }

// Verify fetches the server the token belongs to.
func (t *PostmarkTransport) Verify(ctx context.Context) error {
	srv, err := t.client.GetCurrentServer(ctx)
	if err != nil {
		return t.classify("verify", err)
	}
	if srv.ID == 0 && srv.Name == "" {
		return &Error{Op: "verify", Kind: ErrAuth, Detail: "server token rejected", Err: errors.New("postmark: empty server response")}
	}
	return nil
}

// Send submits msg. A non-zero Postmark error code is a provider reply.
func (t *PostmarkTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: err}
	}

	from := t.from
	if msg.FromName != "" {
		from = (&mail.Address{Name: msg.FromName, Address: t.from}).String()
	}
	resp, err := t.client.SendEmail(ctx, postmark.Email{
		From:     from,
		To:       msg.To,
		ReplyTo:  msg.ReplyTo,
		Subject:  msg.Subject,
		Tag:      "contact-form",
		HTMLBody: msg.HTMLBody,
	})
	// A 200 carrying an error code comes back as both resp.ErrorCode and a
	// plain error; a 4xx comes back as postmark.APIError.
	if resp.ErrorCode != 0 {
		return apiError("send", resp.ErrorCode, resp.Message, err)
	}
	if err != nil {
		return t.classify("send", err)
	}
	return nil
}

func apiError(op string, code int64, msg string, err error) *Error {
	kind := ErrProviderResponse
	if code == postmarkInvalidToken {
		kind = ErrAuth
	}
	detail := fmt.Sprintf("%d - %s", code, msg)
	if err == nil {
		err = fmt.Errorf("postmark error: %s", detail)
	}
	return &Error{Op: op, Kind: kind, Detail: detail, Err: err}
}

// classify maps client failures. Only Postmark API errors carry a detail;
// decode errors and other local failures stay out of client-facing text.
func (t *PostmarkTransport) classify(op string, err error) error {
	var apiErr postmark.APIError
	if errors.As(err, &apiErr) {
		return apiError(op, apiErr.ErrorCode, apiErr.Message, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Op: op, Kind: ErrTimeout, Err: err}
		}
		return &Error{Op: op, Kind: ErrConnection, Err: err}
	}
	return &Error{Op: op, Kind: ErrUnknown, Err: err}
}
