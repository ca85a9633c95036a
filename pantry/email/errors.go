// pantry/email/errors.go
package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"syscall"

	"github.com/wneessen/go-mail"
)

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrAuth
	ErrConnection
	ErrTimeout
	ErrProviderResponse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAuth:
		return "auth"
	case ErrConnection:
		return "connection"
	case ErrTimeout:
		return "timeout"
	case ErrProviderResponse:
		return "provider_response"
	default:
		return "unknown"
	}
}

// Error is a classified transport failure. Op is "verify" or "send".
// Detail holds the provider's reply for ErrProviderResponse and ErrAuth, and
// is safe to show to an operator.
type Error struct {
	Op     string
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("email %s: %s: %s", e.Op, e.Kind, e.Detail)
	}
	return fmt.Sprintf("email %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Description is a short operator-facing account of the failure with no
// addresses or internal error text.
func (e *Error) Description() string {
	switch e.Kind {
	case ErrAuth:
		if e.Detail != "" {
			return "Invalid login: " + e.Detail
		}
		return "Invalid login"
	case ErrTimeout:
		return "Connection timeout"
	case ErrProviderResponse:
		return "Server replied: " + e.Detail
	default:
		return "Unable to connect to email server"
	}
}

// KindOf returns the classification of err, or ErrUnknown when err is not
// an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrUnknown
}

// SMTP reply codes that mean the credentials were refused.
var authReplyCodes = map[int]bool{530: true, 534: true, 535: true, 538: true}

var authSentinels = []error{
	mail.ErrPlainAuthNotSupported,
	mail.ErrLoginAuthNotSupported,
	mail.ErrNoSupportedAuthDiscovered,
}

// classify wraps err in an *Error for op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Op: op, Kind: kindOf(err), Detail: detailOf(err), Err: err}
}

func kindOf(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		if authReplyCodes[tpErr.Code] {
			return ErrAuth
		}
		return ErrProviderResponse
	}

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		switch {
		case authReplyCodes[sendErr.ErrorCode()]:
			return ErrAuth
		case sendErr.ErrorCode() > 0:
			return ErrProviderResponse
		case sendErr.Reason == mail.ErrConnCheck:
			return ErrConnection
		}
		return ErrUnknown
	}

	for _, s := range authSentinels {
		if errors.Is(err, s) {
			return ErrAuth
		}
	}
	if strings.Contains(err.Error(), "SMTP AUTH failed") ||
		strings.Contains(err.Error(), "does not support SMTP AUTH") {
		return ErrAuth
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrConnection
	}
	return ErrUnknown
}

func detailOf(err error) string {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return fmt.Sprintf("%d %s", tpErr.Code, tpErr.Msg)
	}
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.ErrorCode() > 0 {
		return sendErr.Error()
	}
	return ""
}
