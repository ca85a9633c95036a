// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/latrix/insider/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
)

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM.
// The returned cancel function also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", zap.Any("signal", sig))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// ListenAndServeWithContext serves handler over HTTP, HTTPS with manual
// certificates, or HTTPS with Let's Encrypt (http-01), and blocks until ctx
// is canceled or a server fails.
//
// In HTTPS modes an auxiliary :80 server redirects to HTTPS (and answers ACME
// challenges when Let's Encrypt is enabled).
func ListenAndServeWithContext(ctx context.Context, cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("ListenAndServeWithContext: cfg is nil")
	}
	if handler == nil {
		return errors.New("ListenAndServeWithContext: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newHTTPServer(cfg, handler, logger)
	httpAddr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
	httpsAddr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)

	var (
		auxSrv   *http.Server
		baseLn   net.Listener
		serveErr = make(chan error, 1)
		auxErr   chan error // nil unless auxSrv runs; a nil channel never fires in select
	)

	startAux := func(h http.Handler, what string) {
		auxSrv = newHTTPServer(cfg, h, logger)
		auxSrv.Addr = ":80"
		auxErr = make(chan error, 1)
		go serveAuxiliary(auxSrv, auxErr)
		logger.Info(what+" listening", zap.String("addr", auxSrv.Addr))
	}

	switch {
	case !cfg.HTTP.UseHTTPS:
		ln, err := net.Listen("tcp", httpAddr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", httpAddr, err)
		}
		baseLn = ln
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		go servePrimary(srv, ln, serveErr)

	case cfg.TLS.UseLetsEncrypt:
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		startAux(m.HTTPHandler(httpRedirectHandler()), "ACME + redirect server")

		if err := waitForCert(ctx, m, cfg.TLS.Domain, 60*time.Second); err != nil {
			logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
		}

		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate}
		srv.TLSConfig = tlsCfg
		ln, err := net.Listen("tcp", httpsAddr)
		if err != nil {
			_ = shutdownAux(context.Background(), auxSrv)
			return fmt.Errorf("listen https %s: %w", httpsAddr, err)
		}
		baseLn = ln
		logger.Info("HTTPS server (Let's Encrypt http-01) listening",
			zap.String("addr", httpsAddr),
			zap.String("domain", cfg.TLS.Domain))
		go servePrimary(srv, tls.NewListener(ln, tlsCfg), serveErr)

	default:
		if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
			var permErr *keyPermissionError
			if !errors.As(err, &permErr) {
				return err
			}
			if cfg.Env == "prod" {
				return fmt.Errorf("production security: %w", err)
			}
			logger.Warn("TLS key file security warning (would block in prod)", zap.Error(err))
		}

		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		startAux(httpRedirectHandler(), "HTTP → HTTPS redirect server")

		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
		srv.TLSConfig = tlsCfg
		ln, err := net.Listen("tcp", httpsAddr)
		if err != nil {
			_ = shutdownAux(context.Background(), auxSrv)
			return fmt.Errorf("listen https %s: %w", httpsAddr, err)
		}
		baseLn = ln
		logger.Info("HTTPS server (manual TLS) listening",
			zap.String("addr", httpsAddr),
			zap.String("cert_file", cfg.TLS.CertFile))
		go servePrimary(srv, tls.NewListener(ln, tlsCfg), serveErr)
	}

	// srv.Close/Shutdown do not close listeners handed to Serve.
	defer baseLn.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down server…")
			// ctx is already done; the shutdown window is measured from here.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			_ = shutdownAux(shutdownCtx, auxSrv)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			logger.Info("server stopped gracefully")
			return nil

		case err := <-serveErr:
			_ = shutdownAux(context.Background(), auxSrv)
			if err != nil {
				return fmt.Errorf("primary server error: %w", err)
			}
			return nil

		case err := <-auxErr:
			if err != nil {
				if closeErr := srv.Close(); closeErr != nil {
					logger.Error("failed to close primary server after auxiliary crash", zap.Error(closeErr))
				}
				return fmt.Errorf("auxiliary server error: %w", err)
			}
			auxSrv, auxErr = nil, nil
		}
	}
}

func newHTTPServer(cfg *config.CoreConfig, h http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

func servePrimary(srv *http.Server, ln net.Listener, ch chan<- error) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		ch <- err
		return
	}
	ch <- nil
}

func serveAuxiliary(auxSrv *http.Server, ch chan<- error) {
	if err := auxSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		ch <- err
		return
	}
	ch <- nil
}

func shutdownAux(ctx context.Context, auxSrv *http.Server) error {
	if auxSrv == nil {
		return nil
	}
	return auxSrv.Shutdown(ctx)
}

// httpRedirectHandler redirects to https://<host><uri>, rejecting hosts and
// URIs that could inject headers or redirect off-site.
func httpRedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqURI := r.URL.RequestURI()
		if !isValidHost(r.Host) || hasControlChars(reqURI) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+reqURI, http.StatusMovedPermanently)
	})
}

func hasControlChars(s string) bool {
	for _, c := range s {
		if c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}

func isValidHost(host string) bool {
	if host == "" || hasControlChars(host) {
		return false
	}
	if strings.Contains(host, "://") || strings.ContainsAny(host, "/\\@ ") {
		return false
	}

	hostPart, portStr, err := net.SplitHostPort(host)
	if err != nil {
		hostPart = host
	} else if port, perr := strconv.Atoi(portStr); perr != nil || port <= 0 || port > 65535 {
		return false
	}
	if hostPart == "" {
		return false
	}

	if strings.HasPrefix(hostPart, "[") && strings.HasSuffix(hostPart, "]") {
		ip := hostPart[1 : len(hostPart)-1]
		if i := strings.IndexByte(ip, '%'); i != -1 {
			ip = ip[:i]
		}
		return net.ParseIP(ip) != nil
	}
	return true
}

// keyPermissionError reports a TLS key readable by group or others.
type keyPermissionError struct {
	path string
	perm os.FileMode
}

func (e *keyPermissionError) Error() string {
	return fmt.Sprintf("TLS key file %s has overly permissive permissions %o (recommended: 0600)", e.path, e.perm)
}

// validateTLSFiles checks that the certificate and key exist and are regular
// files. A group/world-readable key yields *keyPermissionError.
func validateTLSFiles(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return errors.New("manual TLS selected but cert_file / key_file not provided")
	}
	if _, err := statFile("certificate", certFile); err != nil {
		return err
	}
	keyInfo, err := statFile("key", keyFile)
	if err != nil {
		return err
	}
	if runtime.GOOS != "windows" && keyInfo.Mode().Perm()&0o077 != 0 {
		return &keyPermissionError{path: keyFile, perm: keyInfo.Mode().Perm()}
	}
	return nil
}

func statFile(kind, path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("TLS %s file does not exist: %s", kind, path)
		}
		return nil, fmt.Errorf("cannot access TLS %s file %s: %w", kind, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("TLS %s path is a directory, not a file: %s", kind, path)
	}
	return info, nil
}

// waitForCert polls autocert until host has a certificate, the timeout (or
// ctx deadline, whichever is first) passes, or ctx is canceled.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for cert for %q: %w (last error: %v)", host, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
