// Package contactclient is the submitting side of the contact form. A
// Submitter holds the form values, validates them with the shared rules in
// contactform, and POSTs them to the relay at most once per Submit.
package contactclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/latrix/insider/internal/contactform"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a Submitter.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSubmitting:
		return "submitting"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Banner texts.
const (
	SuccessMessage  = "Thank you! Your message has been sent successfully. We'll get back to you soon."
	FailureFallback = "Failed to send message"
	NetworkFailure  = "Failed to send message. Please try again."
)

// DefaultPath is the relay path on the site origin.
const DefaultPath = "/api/send-email"

const maxResponseBytes = 64 << 10

// ErrSubmissionInFlight is returned by Submit while an earlier submission
// has not settled.
var ErrSubmissionInFlight = errors.New("contactclient: submission already in flight")

// FailureError is a settled failed submission. Message is shown to the user
// as is.
type FailureError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FailureError) Error() string { return e.Message }

func (e *FailureError) Unwrap() error { return e.Err }

// State is a snapshot of a Submitter.
type State struct {
	Status      Status
	Values      contactform.Payload
	FieldErrors contactform.FieldErrors
	// Banner is the success or failure text, empty while idle.
	Banner string
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient sets the client used to reach the relay.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) { s.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Submitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// Submitter is safe for concurrent use.
type Submitter struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger

	mu     sync.Mutex
	values contactform.Payload
	errs   contactform.FieldErrors
	status Status
	banner string
}

// New returns a Submitter that posts to endpoint, the full relay URL.
func New(endpoint string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set updates one field by its wire name. Editing clears that field's error
// and any banner.
func (s *Submitter) Set(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case contactform.FieldFirstName:
		s.values.FirstName = value
	case contactform.FieldLastName:
		s.values.LastName = value
	case contactform.FieldMobileNumber:
		s.values.MobileNumber = value
	case contactform.FieldEmail:
		s.values.Email = value
	case contactform.FieldMessage:
		s.values.Message = value
	default:
		return fmt.Errorf("contactclient: unknown field %q", field)
	}
	delete(s.errs, field)
	s.banner = ""
	if s.status != StatusSubmitting {
		s.status = StatusIdle
	}
	return nil
}

// SetAll replaces every field value.
func (s *Submitter) SetAll(p contactform.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = p
	s.errs = nil
	s.banner = ""
	if s.status != StatusSubmitting {
		s.status = StatusIdle
	}
}

// State returns a snapshot.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs contactform.FieldErrors
	if len(s.errs) > 0 {
		errs = make(contactform.FieldErrors, len(s.errs))
		for k, v := range s.errs {
			errs[k] = v
		}
	}
	return State{Status: s.status, Values: s.values, FieldErrors: errs, Banner: s.banner}
}

// Submit validates the form and, when every field passes, POSTs it once.
//
// A validation failure returns contactform.FieldErrors and sends nothing.
// A settled failure returns *FailureError and keeps the field values. On
// success the fields are cleared. Submit never retries.
func (s *Submitter) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusSubmitting {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	s.banner = ""
	if fe := contactform.Validate(s.values); fe != nil {
		s.errs = fe
		s.status = StatusIdle
		s.mu.Unlock()
		return fe
	}
	s.errs = nil
	s.status = StatusSubmitting
	payload := s.values
	s.mu.Unlock()

	err := s.post(ctx, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.banner = err.Error()
		s.logger.Warn("contact submission failed", zap.Error(err))
		return err
	}
	s.status = StatusSucceeded
	s.banner = SuccessMessage
	s.values = contactform.Payload{}
	return nil
}

type relayResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s *Submitter) post(ctx context.Context, p contactform.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return &FailureError{Message: NetworkFailure, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &FailureError{Message: NetworkFailure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return &FailureError{Message: NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &FailureError{StatusCode: resp.StatusCode, Message: NetworkFailure, Err: err}
	}

	var rr relayResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		msg := statusText(resp)
		if msg == "" {
			msg = FailureFallback
		}
		return &FailureError{StatusCode: resp.StatusCode, Message: msg, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := rr.Error
		if msg == "" {
			msg = FailureFallback
		}
		return &FailureError{StatusCode: resp.StatusCode, Message: msg}
	}

	s.logger.Debug("contact submission accepted",
		zap.Int("status", resp.StatusCode),
		zap.String("submission_id", resp.Header.Get("X-Submission-ID")),
	)
	return nil
}

// statusText is the reason phrase of resp, e.g. "Bad Gateway".
func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
