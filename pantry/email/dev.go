// pantry/email/dev.go
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// DevTransport writes each message to Dir as an .html body plus a .json
// metadata file instead of delivering it.
type DevTransport struct {
	dir string
	seq atomic.Uint64
}

// NewDevTransport returns a transport writing under dir ("dev-mail" if empty).
func NewDevTransport(dir string) *DevTransport {
	if strings.TrimSpace(dir) == "" {
		dir = "dev-mail"
	}
	return &DevTransport{dir: dir}
}

func (d *DevTransport) Name() string { return KindDev }

// Dir is the output directory.
func (d *DevTransport) Dir() string { return d.dir }

// Verify makes sure the output directory exists and is writable.
func (d *DevTransport) Verify(ctx context.Context) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return &Error{Op: "verify", Kind: ErrUnknown, Err: fmt.Errorf("create dev mail dir: %w", err)}
	}
	return nil
}

type devMetadata struct {
	Timestamp string `json:"timestamp"`
	FromName  string `json:"from_name,omitempty"`
	To        string `json:"to"`
	ReplyTo   string `json:"reply_to,omitempty"`
	Subject   string `json:"subject"`
}

// Send writes <timestamp>_<seq>_<subject>.html and .json.
func (d *DevTransport) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return classify("send", err)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: fmt.Errorf("create dev mail dir: %w", err)}
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%03d_%s", now.Format("2006_01_02_150405"), d.seq.Add(1), sanitizeFilename(msg.Subject))

	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(msg.HTMLBody), 0o644); err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: fmt.Errorf("write html: %w", err)}
	}

	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		FromName:  msg.FromName,
		To:        msg.To,
		ReplyTo:   msg.ReplyTo,
		Subject:   msg.Subject,
	}, "", "  ")
	if err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: fmt.Errorf("marshal metadata: %w", err)}
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return &Error{Op: "send", Kind: ErrUnknown, Err: fmt.Errorf("write metadata: %w", err)}
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = unsafeFilename.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
