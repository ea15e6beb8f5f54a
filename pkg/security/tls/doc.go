/*
Package tls provides the HTTPS listener configuration and certificate hot
reload for the proxy.

# Server Configuration

	reloader := tls.NewCertificateReloader(cfg.Security.TLS)
	if err := reloader.Start(ctx); err != nil {
		return err // *proxy.TLSError
	}

	tlsConfig, err := tls.NewServerConfig(&cfg.Security.TLS, reloader)

The listener never holds a certificate of its own: every handshake asks the
reloader, so a renewed certificate is picked up by the next connection.

# Certificate Reload

With security.tls.watch enabled the directories holding the certificate
and key are watched with fsnotify. Writes, creates and renames of either
file trigger a reload after a short debounce. A reload that fails (partial
write, mismatched key, expired certificate) is logged and the previous
certificate stays in service.

# Expiry Check

security.tls.expiry_check_schedule is a cron expression (default "@every 6h").
Each run logs a warning when the certificate expires within
security.tls.expiry_warning (default 30 days).
*/
package tls
