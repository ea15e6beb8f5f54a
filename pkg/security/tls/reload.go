package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/proxy"
)

const (
	defaultDebounce      = 100 * time.Millisecond
	defaultExpiryWarning = 30 * 24 * time.Hour
)

// CertificateReloader serves the listener certificate and swaps it when the
// files on disk change, so renewals apply without a restart. A failed reload
// keeps the previous certificate.
type CertificateReloader struct {
	certFile      string
	keyFile       string
	watch         bool
	schedule      string
	expiryWarning time.Duration
	debounce      time.Duration
	logger        *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate
	leaf *x509.Certificate

	watcher   *fsnotify.Watcher
	cron      *cron.Cron
	debouncer *Debouncer
	done      chan struct{}
	stopOnce  sync.Once
}

// ReloaderOption customizes a CertificateReloader.
type ReloaderOption func(*CertificateReloader)

// WithLogger sets the reloader's logger.
func WithLogger(l *slog.Logger) ReloaderOption {
	return func(r *CertificateReloader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDebounce sets the quiet period after a file event before reloading.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *CertificateReloader) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// NewCertificateReloader creates a reloader for the configured key pair.
// Nothing is read until Start.
func NewCertificateReloader(cfg config.TLSConfig, opts ...ReloaderOption) *CertificateReloader {
	r := &CertificateReloader{
		certFile:      filepath.Clean(cfg.CertFile),
		keyFile:       filepath.Clean(cfg.KeyFile),
		watch:         cfg.Watch,
		schedule:      cfg.ExpiryCheckSchedule,
		expiryWarning: cfg.ExpiryWarning,
		debounce:      defaultDebounce,
		logger:        slog.Default(),
		done:          make(chan struct{}),
	}
	if r.expiryWarning <= 0 {
		r.expiryWarning = defaultExpiryWarning
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "tls.reloader")
	return r
}

// Start loads the certificate, then watches the files and schedules the
// expiry check as configured. Background work stops when ctx is done or
// Stop is called. A certificate that cannot be loaded is a *proxy.TLSError.
func (r *CertificateReloader) Start(ctx context.Context) error {
	if err := r.Reload(); err != nil {
		return &proxy.TLSError{Message: "failed to load TLS certificate", Err: err}
	}
	r.CheckExpiry()

	if r.watch {
		if err := r.startWatcher(); err != nil {
			return &proxy.TLSError{Message: "failed to watch TLS certificate", Err: err}
		}
	}

	if r.schedule != "" {
		if err := r.startExpiryCheck(); err != nil {
			r.Stop()
			return &proxy.TLSError{Message: "invalid expiry check schedule", Err: err}
		}
	}

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.done:
		}
	}()
	return nil
}

// Stop ends file watching and the expiry schedule. It is safe to call more
// than once.
func (r *CertificateReloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.debouncer != nil {
			r.debouncer.Stop()
		}
		if r.watcher != nil {
			_ = r.watcher.Close()
		}
		if r.cron != nil {
			<-r.cron.Stop().Done()
		}
	})
}

// Reload reads the key pair from disk and swaps it in.
func (r *CertificateReloader) Reload() error {
	cert, leaf, err := LoadKeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = cert
	r.leaf = leaf
	r.mu.Unlock()

	r.logger.Info("certificate loaded",
		"cert_file", r.certFile,
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)
	return nil
}

// GetCertificate returns the current certificate.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc returns a function for tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		cert := r.GetCertificate()
		if cert == nil {
			return nil, errors.New("no certificate loaded")
		}
		return cert, nil
	}
}

// Leaf returns the parsed leaf of the current certificate. It satisfies the
// readiness check's certificate source.
func (r *CertificateReloader) Leaf() (*x509.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.leaf == nil {
		return nil, errors.New("no certificate loaded")
	}
	return r.leaf, nil
}

// CheckExpiry logs a warning when the certificate expires within the
// configured window and returns the warning text, empty otherwise.
func (r *CertificateReloader) CheckExpiry() string {
	leaf, err := r.Leaf()
	if err != nil {
		return ""
	}

	days, warning := CheckCertificateExpiration(leaf, r.expiryWarning, time.Now())
	if warning != "" {
		r.logger.Warn("certificate expiring soon",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", days,
			"expires_at", leaf.NotAfter.Format(time.RFC3339),
		)
	}
	return warning
}

func (r *CertificateReloader) startExpiryCheck() error {
	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() { r.CheckExpiry() }); err != nil {
		return fmt.Errorf("failed to schedule expiry check: %w", err)
	}
	c.Start()
	r.cron = c

	r.logger.Debug("certificate expiry check scheduled", "schedule", r.schedule)
	return nil
}

// startWatcher watches the directories holding the cert and key. Watching
// directories rather than files keeps working when the files are replaced
// by rename.
func (r *CertificateReloader) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dirs := map[string]bool{
		filepath.Dir(r.certFile): true,
		filepath.Dir(r.keyFile):  true,
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
	}

	r.watcher = w
	r.debouncer = NewDebouncer(r.debounce)
	go r.watchLoop(w)

	r.logger.Info("watching certificate files",
		"cert_file", r.certFile,
		"key_file", r.keyFile,
		"debounce_ms", r.debounce.Milliseconds(),
	)
	return nil
}

func (r *CertificateReloader) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case <-r.done:
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}

			r.logger.Debug("certificate file event", "path", event.Name, "op", event.Op.String())
			r.debouncer.Trigger(func() {
				if err := r.Reload(); err != nil {
					r.logger.Error("certificate reload failed, keeping previous certificate",
						"cert_file", r.certFile,
						"key_file", r.keyFile,
						"error", err,
					)
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Error("certificate watcher error", "error", err)
		}
	}
}

// relevant reports whether event touches the cert or key file.
func (r *CertificateReloader) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == r.certFile || name == r.keyFile
}
