package contact

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/latrix/insider/internal/contactform"
	"github.com/latrix/insider/pantry/email"
)

var sanitizer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Sanitize escapes the HTML metacharacters & < > " and ' in s.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// sanitizeMessage escapes s and turns line breaks into <br>.
func sanitizeMessage(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(Sanitize(s), "\n", "<br>")
}

// Subject returns the outbound subject line for p.
func Subject(p contactform.Payload) string {
	return fmt.Sprintf("Contact Form Message from %s %s", Sanitize(p.FirstName), Sanitize(p.LastName))
}

// Values are escaped by Sanitize before they reach the template, so the
// template receives them as template.HTML and does not escape them again.
var bodyTemplate = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #393D75; border-bottom: 2px solid #B871E1; padding-bottom: 10px;">
    New Contact Form Submission
  </h2>
  <div style="background-color: #f5f5f5; padding: 20px; border-radius: 8px; margin-top: 20px;">
    <p><strong>First Name:</strong> {{.FirstName}}</p>
    <p><strong>Last Name:</strong> {{.LastName}}</p>
    <p><strong>Mobile Number:</strong> {{.MobileNumber}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Message:</strong></p>
    <p style="background-color: white; padding: 15px; border-radius: 4px; border-left: 4px solid #B871E1;">
      {{.Message}}
    </p>
  </div>
  <p style="color: #666; font-size: 12px; margin-top: 20px;">
    This email was sent from the Latrix Insider contact form.
  </p>
</div>
`))

type bodyFields struct {
	FirstName    template.HTML
	LastName     template.HTML
	MobileNumber template.HTML
	Email        template.HTML
	Message      template.HTML
}

// Body renders the HTML body for p with every field sanitized.
func Body(p contactform.Payload) (string, error) {
	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyFields{
		FirstName:    template.HTML(Sanitize(p.FirstName)),
		LastName:     template.HTML(Sanitize(p.LastName)),
		MobileNumber: template.HTML(Sanitize(p.MobileNumber)),
		Email:        template.HTML(Sanitize(p.Email)),
		Message:      template.HTML(sanitizeMessage(p.Message)),
	})
	if err != nil {
		return "", fmt.Errorf("render contact body: %w", err)
	}
	return buf.String(), nil
}

// Compose builds the outbound message. Reply-To carries the submitter's
// address unescaped.
func Compose(cfg Config, p contactform.Payload) (email.Message, error) {
	body, err := Body(p)
	if err != nil {
		return email.Message{}, err
	}
	return email.Message{
		FromName: cfg.fromName(),
		To:       cfg.recipient(),
		ReplyTo:  p.Email,
		Subject:  Subject(p),
		HTMLBody: body,
	}, nil
}
