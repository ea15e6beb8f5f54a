/*
Package security groups the transport security of the proxy.

The proxy holds no credentials of its own: the caller's bearer token is
re-issued upstream unchanged. What remains is serving HTTPS, implemented
in the tls subpackage:

	reloader := tls.NewCertificateReloader(cfg.Security.TLS)
	if err := reloader.Start(ctx); err != nil {
		return err
	}
	serverTLS, err := tls.NewServerConfig(&cfg.Security.TLS, reloader)
	if err != nil {
		return err
	}

Certificates are served through GetCertificate, so files replaced on disk
take effect on the next handshake.
*/
package security
