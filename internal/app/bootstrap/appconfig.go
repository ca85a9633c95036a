package bootstrap

import (
	"fmt"
	"strings"

	"github.com/latrix/insider/config"
	"github.com/latrix/insider/internal/app/features/contact"
	"github.com/latrix/insider/pantry/email"
)

// appKeys are read without an env prefix, so smtp_user is SMTP_USER.
var appKeys = []config.AppKey{
	{Name: "mail_transport", Default: email.KindSMTP, Desc: "Mail transport: smtp, postmark or dev"},
	{Name: "smtp_user", Default: "", Desc: "SMTP account (also the sender address)", Secret: true},
	{Name: "smtp_password", Default: "", Desc: "SMTP password or app password"},
	{Name: "smtp_host", Default: "smtp.gmail.com", Desc: "SMTP host"},
	{Name: "smtp_port", Default: 587, Desc: "SMTP port (465 uses implicit TLS)"},
	{Name: "mail_timeout", Default: "10s", Desc: "Dial, greeting and socket timeout for mail transports"},
	{Name: "mail_from_name", Default: contact.DefaultFromName, Desc: "Display name on outbound contact mail"},
	{Name: "mail_from_address", Default: "", Desc: "Sender address for the postmark transport"},
	{Name: "contact_recipient", Default: contact.DefaultRecipient, Desc: "Inbox that receives contact submissions"},
	{Name: "postmark_server_token", Default: "", Desc: "Postmark server API token"},
	{Name: "postmark_account_token", Default: "", Desc: "Postmark account API token"},
	{Name: "dev_mail_dir", Default: "dev-mail", Desc: "Output directory for the dev transport"},
	{Name: "contact_strict_validation", Default: false, Desc: "Apply the full form rule set on the server"},
}

// AppConfig holds service-specific configuration.
type AppConfig struct {
	Contact contact.Config
}

// appConfigFrom maps and validates the loaded app keys.
func appConfigFrom(vals config.AppConfigValues) (AppConfig, error) {
	kind := strings.ToLower(vals.String("mail_transport"))
	switch kind {
	case "":
		kind = email.KindSMTP
	case email.KindSMTP, email.KindPostmark, email.KindDev:
	default:
		return AppConfig{}, fmt.Errorf("mail_transport must be smtp, postmark or dev, got %q", kind)
	}

	port := vals.Int("smtp_port")
	if kind == email.KindSMTP && (port < 1 || port > 65535) {
		return AppConfig{}, fmt.Errorf("smtp_port must be in 1..65535, got %v", vals["smtp_port"])
	}

	recipient := vals.String("contact_recipient")
	if recipient == "" {
		recipient = contact.DefaultRecipient
	}

	return AppConfig{
		Contact: contact.Config{
			Mail: email.Config{
				Kind:         kind,
				Timeout:      vals.Duration("mail_timeout", email.DefaultTimeout),
				Host:         vals.String("smtp_host"),
				Port:         port,
				Username:     vals.String("smtp_user"),
				Password:     vals.String("smtp_password"),
				ServerToken:  vals.String("postmark_server_token"),
				AccountToken: vals.String("postmark_account_token"),
				FromAddress:  vals.String("mail_from_address"),
				Dir:          vals.String("dev_mail_dir"),
			},
			FromName:         vals.String("mail_from_name"),
			Recipient:        recipient,
			StrictValidation: vals.Bool("contact_strict_validation"),
		},
	}, nil
}
