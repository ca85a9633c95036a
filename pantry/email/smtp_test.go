package email

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal line-oriented SMTP server for exercising the
// transport without a real relay.
type fakeSMTP struct {
	ln        net.Listener
	greeting  string
	authReply string
	rcptReply string
	silent    bool
	tlsConfig *tls.Config // serve implicit TLS when set

	mu    sync.Mutex
	cmds  []string
	data  []string
	auths []fakeAuth
	conns int
}

// fakeAuth records one AUTH command and whether it arrived over TLS.
type fakeAuth struct {
	tls   bool
	plain string
}

func newFakeSMTP(t *testing.T, configure func(*fakeSMTP)) *fakeSMTP {
	t.Helper()
	f := &fakeSMTP{
		greeting:  "220 fake.example ESMTP ready",
		authReply: "235 2.7.0 Authentication successful",
		rcptReply: "250 2.1.5 OK",
	}
	if configure != nil {
		configure(f)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	if f.tlsConfig != nil {
		ln = tls.NewListener(ln, f.tlsConfig)
	}
	f.ln = ln
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeSMTP) port() int { return f.ln.Addr().(*net.TCPAddr).Port }

func (f *fakeSMTP) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns++
		f.mu.Unlock()
		go f.handle(conn)
	}
}

func (f *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	if f.silent {
		_, _ = r.ReadString(0)
		return
	}

	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
	reply(f.greeting)
	if !strings.HasPrefix(f.greeting, "220") {
		return
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		f.mu.Lock()
		f.cmds = append(f.cmds, verb)
		f.mu.Unlock()

		switch verb {
		case "EHLO", "HELO":
			reply("250-fake.example")
			reply("250-AUTH PLAIN LOGIN")
			reply("250 8BITMIME")
		case "AUTH":
			f.recordAuth(conn, line)
			reply(f.authReply)
		case "RCPT":
			reply(f.rcptReply)
		case "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			f.mu.Lock()
			f.data = append(f.data, b.String())
			f.mu.Unlock()
			reply("250 2.0.0 OK queued")
		case "QUIT":
			reply("221 2.0.0 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (f *fakeSMTP) recordAuth(conn net.Conn, line string) {
	a := fakeAuth{}
	if tc, ok := conn.(*tls.Conn); ok {
		a.tls = tc.ConnectionState().HandshakeComplete
	}
	if fields := strings.Fields(line); len(fields) == 3 && strings.EqualFold(fields[1], "PLAIN") {
		if raw, err := base64.StdEncoding.DecodeString(fields[2]); err == nil {
			a.plain = string(raw)
		}
	}
	f.mu.Lock()
	f.auths = append(f.auths, a)
	f.mu.Unlock()
}

func (f *fakeSMTP) authsSeen() []fakeAuth {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeAuth(nil), f.auths...)
}

// selfSignedCert issues a short-lived certificate for 127.0.0.1.
func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "fake.example"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func (f *fakeSMTP) sawCommand(verb string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cmds {
		if c == verb {
			return true
		}
	}
	return false
}

func (f *fakeSMTP) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.data...)
}

func smtpConfig(port int) Config {
	return Config{
		Kind:     KindSMTP,
		Host:     "127.0.0.1",
		Port:     port,
		Username: "contact@latrix.example",
		Password: "app-password",
		Timeout:  2 * time.Second,
	}
}

func testMessage() Message {
	return Message{
		FromName: "Latrix Contact Form",
		To:       "inbox@latrix.example",
		ReplyTo:  "jane@example.com",
		Subject:  "Contact Form Message from Jane Doe",
		HTMLBody: "<h2>New Contact Form Submission</h2>",
	}
}

func TestNewSMTPTransport_Defaults(t *testing.T) {
	tr, err := NewSMTPTransport(Config{Username: "u@example.com", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com", tr.host)
	assert.Equal(t, 587, tr.port)
	assert.Equal(t, DefaultTimeout, tr.timeout)
	assert.False(t, tr.ImplicitTLS())

	tr, err = NewSMTPTransport(Config{Username: "u@example.com", Password: "p", Port: 465})
	require.NoError(t, err)
	assert.True(t, tr.ImplicitTLS())

	_, err = NewSMTPTransport(Config{Username: "u@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSMTPTransport(Config{Username: "u@example.com", Password: "p", Port: 70000})
	assert.Error(t, err)
}

func TestSMTPTransport_VerifyAndSend(t *testing.T) {
	srv := newFakeSMTP(t, nil)
	tr, err := NewSMTPTransport(smtpConfig(srv.port()))
	require.NoError(t, err)

	require.NoError(t, tr.Verify(context.Background()))
	assert.True(t, srv.sawCommand("AUTH"))
	assert.True(t, srv.sawCommand("QUIT"))

	require.NoError(t, tr.Send(context.Background(), testMessage()))
	msgs := srv.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], `From: "Latrix Contact Form" <contact@latrix.example>`)
	assert.Contains(t, msgs[0], "Reply-To: <jane@example.com>")
	assert.Contains(t, msgs[0], "Subject: Contact Form Message from Jane Doe")
	assert.Contains(t, msgs[0], "text/html")
}

func TestSMTPTransport_ImplicitTLS(t *testing.T) {
	srv := newFakeSMTP(t, func(f *fakeSMTP) {
		f.tlsConfig = &tls.Config{Certificates: []tls.Certificate{selfSignedCert(t)}}
	})
	tr, err := NewSMTPTransport(smtpConfig(465))
	require.NoError(t, err)
	require.True(t, tr.ImplicitTLS())
	tr.port = srv.port()
	tr.tlsConfig.InsecureSkipVerify = true

	require.NoError(t, tr.Verify(context.Background()))
	require.NoError(t, tr.Send(context.Background(), testMessage()))

	auths := srv.authsSeen()
	require.Len(t, auths, 2)
	for _, a := range auths {
		assert.True(t, a.tls, "AUTH must arrive on the TLS session")
		assert.Equal(t, "\x00contact@latrix.example\x00app-password", a.plain)
	}
	assert.False(t, srv.sawCommand("STARTTLS"))
	require.Len(t, srv.messages(), 1)
	assert.Contains(t, srv.messages()[0], "Subject: Contact Form Message from Jane Doe")
}

func TestSMTPTransport_ImplicitTLSRejectsUnknownCert(t *testing.T) {
	srv := newFakeSMTP(t, func(f *fakeSMTP) {
		f.tlsConfig = &tls.Config{Certificates: []tls.Certificate{selfSignedCert(t)}}
	})
	tr, err := NewSMTPTransport(smtpConfig(465))
	require.NoError(t, err)
	tr.port = srv.port()

	require.Error(t, tr.Verify(context.Background()))
	assert.Empty(t, srv.authsSeen())
}

func TestSMTPTransport_AuthRejected(t *testing.T) {
	srv := newFakeSMTP(t, func(f *fakeSMTP) {
		f.authReply = "535 5.7.8 Username and Password not accepted"
	})
	tr, err := NewSMTPTransport(smtpConfig(srv.port()))
	require.NoError(t, err)

	err = tr.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrAuth, KindOf(err))

	err = tr.Send(context.Background(), testMessage())
	assert.Equal(t, ErrAuth, KindOf(err))
	assert.Empty(t, srv.messages())
}

func TestSMTPTransport_RecipientRejected(t *testing.T) {
	srv := newFakeSMTP(t, func(f *fakeSMTP) {
		f.rcptReply = "550 5.1.1 mailbox unavailable"
	})
	tr, err := NewSMTPTransport(smtpConfig(srv.port()))
	require.NoError(t, err)

	err = tr.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, ErrProviderResponse, KindOf(err))

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Detail, "550")
}

func TestSMTPTransport_GreetingRejected(t *testing.T) {
	srv := newFakeSMTP(t, func(f *fakeSMTP) {
		f.greeting = "554 5.3.2 service not available"
	})
	tr, err := NewSMTPTransport(smtpConfig(srv.port()))
	require.NoError(t, err)

	err = tr.Verify(context.Background())
	assert.Equal(t, ErrProviderResponse, KindOf(err))
}

func TestSMTPTransport_SilentServerTimesOut(t *testing.T) {
	srv := newFakeSMTP(t, func(f *fakeSMTP) { f.silent = true })
	cfg := smtpConfig(srv.port())
	cfg.Timeout = 200 * time.Millisecond
	tr, err := NewSMTPTransport(cfg)
	require.NoError(t, err)

	start := time.Now()
	err = tr.Verify(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSMTPTransport_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr, err := NewSMTPTransport(smtpConfig(port))
	require.NoError(t, err)

	err = tr.Verify(context.Background())
	assert.Equal(t, ErrConnection, KindOf(err))
}

func TestSMTPTransport_InvalidMessage(t *testing.T) {
	tr, err := NewSMTPTransport(smtpConfig(2525))
	require.NoError(t, err)

	msg := testMessage()
	msg.ReplyTo = "not an address"
	err = tr.Send(context.Background(), msg)
	assert.Equal(t, ErrUnknown, KindOf(err))

	err = tr.Send(context.Background(), Message{To: "inbox@latrix.example"})
	assert.Equal(t, ErrUnknown, KindOf(err))
}
