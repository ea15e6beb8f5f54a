package health

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"mercator-hq/orproxy/pkg/routing"
)

// RoutingCheck fails when no routing table is installed. An empty table is
// healthy: every request is then forwarded without a provider preference.
func RoutingCheck(table *routing.Table) CheckFunc {
	return func(context.Context) error {
		if table == nil {
			return errors.New("routing table not loaded")
		}
		return nil
	}
}

// CertificateSource returns the leaf certificate currently served.
type CertificateSource interface {
	Leaf() (*x509.Certificate, error)
}

// CertificateCheck fails when the served certificate is missing, not yet
// valid or expired.
func CertificateCheck(src CertificateSource) CheckFunc {
	return func(context.Context) error {
		leaf, err := src.Leaf()
		if err != nil {
			return fmt.Errorf("no certificate loaded: %w", err)
		}

		now := time.Now()
		if now.Before(leaf.NotBefore) {
			return fmt.Errorf("certificate not valid before %s", leaf.NotBefore.Format(time.RFC3339))
		}
		if now.After(leaf.NotAfter) {
			return fmt.Errorf("certificate expired at %s", leaf.NotAfter.Format(time.RFC3339))
		}
		return nil
	}
}
