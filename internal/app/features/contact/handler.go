// Package contact is the server side of the contact form: it re-validates a
// submission, verifies the mail transport, and relays the submission as one
// HTML email.
package contact

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/latrix/insider/httputil"
	"github.com/latrix/insider/internal/contactform"
	"github.com/latrix/insider/metrics"
	"github.com/latrix/insider/middleware"
	"github.com/latrix/insider/pantry/email"
	"go.uber.org/zap"
)

// Defaults for Config.
const (
	DefaultFromName  = "Latrix Contact Form"
	DefaultRecipient = "anithapalaniyappan2@gmail.com"
)

// Response messages.
const (
	MsgSent           = "Email sent successfully"
	MsgRequired       = "First name, last name, mobile number, email, and message are required"
	MsgInvalidEmail   = "Please provide a valid email address"
	MsgNotConfigured  = "Email service is not configured. Please contact the administrator."
	MsgConfigError    = "Email service configuration error: "
	MsgAuthFailed     = "Email authentication failed. Please check SMTP credentials."
	MsgConnectFailed  = "Unable to connect to email server. Please try again later."
	MsgProviderError  = "Email server error: "
	MsgSendFailed     = "Failed to send email. Please try again later."
	verifyFallbackMsg = "Unable to connect to email server"
)

// Config is the relay configuration, built once at startup.
type Config struct {
	Mail email.Config

	// FromName is the display name on the From header.
	FromName string
	// Recipient receives every submission.
	Recipient string
	// StrictValidation applies the full form rule set, including the
	// mobile number pattern and message length, before sending.
	StrictValidation bool
}

func (c Config) fromName() string {
	if strings.TrimSpace(c.FromName) == "" {
		return DefaultFromName
	}
	return c.FromName
}

func (c Config) recipient() string {
	if strings.TrimSpace(c.Recipient) == "" {
		return DefaultRecipient
	}
	return c.Recipient
}

func (c Config) timeout() time.Duration {
	if c.Mail.Timeout <= 0 {
		return email.DefaultTimeout
	}
	return c.Mail.Timeout
}

// TransportFactory builds a transport from the mail configuration.
type TransportFactory func(email.Config) (email.Transport, error)

// Handler serves POST /api/send-email.
type Handler struct {
	cfg          Config
	logger       *zap.Logger
	newTransport TransportFactory
}

// NewHandler returns a Handler that builds transports with email.New.
func NewHandler(cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, logger: logger, newTransport: email.New}
}

// WithTransportFactory replaces the transport constructor.
func (h *Handler) WithTransportFactory(f TransportFactory) *Handler {
	h.newTransport = f
	return h
}

// Routes returns the relay routes, meant to be mounted under /api.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/send-email", h.ServeSend)
	return r
}

// ServeSend handles one submission. The transport is built, verified and
// used within the request; nothing is retried.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set(middleware.SubmissionIDHeader, id)
	logger := h.logger.With(
		zap.String("submission_id", id),
		zap.String("request_id", chimw.GetReqID(r.Context())),
	)

	var p contactform.Payload
	if err := httputil.BindJSONAllowUnknown(r, &p); err != nil {
		logger.Info("contact submission rejected", zap.String("reason", "bad_body"), zap.Error(err))
		h.reject(w, http.StatusBadRequest, metrics.OutcomeInvalid, err.Error())
		return
	}
	if !contactform.CheckRequired(p) {
		logger.Info("contact submission rejected", zap.String("reason", "missing_fields"))
		h.reject(w, http.StatusBadRequest, metrics.OutcomeInvalid, MsgRequired)
		return
	}
	if !contactform.EmailValid(p.Email) {
		logger.Info("contact submission rejected", zap.String("reason", "invalid_email"))
		h.reject(w, http.StatusBadRequest, metrics.OutcomeInvalid, MsgInvalidEmail)
		return
	}
	if h.cfg.StrictValidation {
		if fe := contactform.Validate(p); fe != nil {
			logger.Info("contact submission rejected", zap.String("reason", "strict_rules"), zap.Error(fe))
			h.reject(w, http.StatusBadRequest, metrics.OutcomeInvalid, fe.First())
			return
		}
	}

	hasUser, hasSecret := h.cfg.Mail.Credentials()
	if !hasUser || !hasSecret {
		logger.Error("mail transport not configured",
			zap.String("transport", h.cfg.Mail.Kind),
			zap.Bool("has_user", hasUser),
			zap.Bool("has_password", hasSecret),
		)
		h.reject(w, http.StatusInternalServerError, metrics.OutcomeNotConfigured, MsgNotConfigured)
		return
	}

	transport, err := h.newTransport(h.cfg.Mail)
	if err != nil {
		logger.Error("mail transport construction failed", zap.Error(err))
		if errors.Is(err, email.ErrNotConfigured) {
			h.reject(w, http.StatusInternalServerError, metrics.OutcomeNotConfigured, MsgNotConfigured)
			return
		}
		h.reject(w, http.StatusInternalServerError, metrics.OutcomeNotConfigured, MsgConfigError+verifyFallbackMsg)
		return
	}
	logger = logger.With(zap.String("transport", transport.Name()))

	start := time.Now()
	verifyCtx, cancel := context.WithTimeout(r.Context(), h.cfg.timeout())
	err = transport.Verify(verifyCtx)
	cancel()
	if err != nil {
		metrics.ObserveDispatch(transport.Name(), email.KindOf(err).String(), time.Since(start))
		logger.Error("mail transport verification failed",
			zap.String("kind", email.KindOf(err).String()), zap.Error(err))
		h.reject(w, http.StatusInternalServerError, metrics.OutcomeVerifyFailed, MsgConfigError+verifyDescription(err))
		return
	}

	msg, err := Compose(h.cfg, p)
	if err != nil {
		logger.Error("contact message composition failed", zap.Error(err))
		h.reject(w, http.StatusInternalServerError, metrics.OutcomeSendFailed, MsgSendFailed)
		return
	}

	// The send survives client disconnects; the transport timeout still bounds it.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.timeout())
	defer cancel()
	if err := transport.Send(sendCtx, msg); err != nil {
		metrics.ObserveDispatch(transport.Name(), email.KindOf(err).String(), time.Since(start))
		logger.Error("contact mail send failed",
			zap.String("kind", email.KindOf(err).String()), zap.Error(err))
		h.reject(w, http.StatusInternalServerError, metrics.OutcomeSendFailed, SendErrorMessage(err))
		return
	}
	metrics.ObserveDispatch(transport.Name(), "ok", time.Since(start))
	metrics.RecordSubmission(metrics.OutcomeSent)

	logger.Info("contact mail sent", zap.Duration("elapsed", time.Since(start)))
	httputil.JSONMessage(w, http.StatusOK, MsgSent)
}

func (h *Handler) reject(w http.ResponseWriter, status int, outcome, msg string) {
	metrics.RecordSubmission(outcome)
	httputil.JSONErrorSimple(w, status, msg)
}

func verifyDescription(err error) string {
	var e *email.Error
	if errors.As(err, &e) {
		return e.Description()
	}
	return verifyFallbackMsg
}

// SendErrorMessage maps a send failure to the message returned to the client.
func SendErrorMessage(err error) string {
	var e *email.Error
	if !errors.As(err, &e) {
		return MsgSendFailed
	}
	switch e.Kind {
	case email.ErrAuth:
		return MsgAuthFailed
	case email.ErrConnection, email.ErrTimeout:
		return MsgConnectFailed
	case email.ErrProviderResponse:
		if e.Detail != "" {
			return MsgProviderError + e.Detail
		}
	}
	return MsgSendFailed
}
