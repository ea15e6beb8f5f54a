package config

import (
	"errors"
	"strings"
	"testing"
)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	fields := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	return fields
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Default()
	cfg.Routing.Rules = []string{"gpt-*=openai,azure", "*claude*=anthropic", "exact=x"}

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		errorField string
	}{
		{
			name:       "empty listen address",
			mutate:     func(c *Config) { c.Proxy.ListenAddress = "" },
			errorField: "proxy.listen_address",
		},
		{
			name:       "listen address without port",
			mutate:     func(c *Config) { c.Proxy.ListenAddress = "localhost" },
			errorField: "proxy.listen_address",
		},
		{
			name:       "listen address with bad port",
			mutate:     func(c *Config) { c.Proxy.ListenAddress = "0.0.0.0:99999" },
			errorField: "proxy.listen_address",
		},
		{
			name:       "negative read timeout",
			mutate:     func(c *Config) { c.Proxy.ReadTimeout = -1 },
			errorField: "proxy.read_timeout",
		},
		{
			name:       "negative body limit",
			mutate:     func(c *Config) { c.Proxy.MaxBodyBytes = -5 },
			errorField: "proxy.max_body_bytes",
		},
		{
			name:       "invalid base URL",
			mutate:     func(c *Config) { c.Upstream.BaseURL = "not a url" },
			errorField: "upstream.base_url",
		},
		{
			name:       "non-http base URL",
			mutate:     func(c *Config) { c.Upstream.BaseURL = "ftp://example.com/v1" },
			errorField: "upstream.base_url",
		},
		{
			name:       "base URL with query",
			mutate:     func(c *Config) { c.Upstream.BaseURL = "https://example.com/v1?x=1" },
			errorField: "upstream.base_url",
		},
		{
			name:       "bad log level",
			mutate:     func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			errorField: "telemetry.logging.level",
		},
		{
			name:       "bad log format",
			mutate:     func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			errorField: "telemetry.logging.format",
		},
		{
			name:       "sample ratio above one",
			mutate:     func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			errorField: "telemetry.tracing.sample_ratio",
		},
		{
			name:       "metrics path without slash",
			mutate:     func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			errorField: "telemetry.metrics.path",
		},
		{
			name: "tls enabled without cert",
			mutate: func(c *Config) {
				c.Security.TLS.Enabled = true
				c.Security.TLS.KeyFile = "key.pem"
			},
			errorField: "security.tls.cert_file",
		},
		{
			name: "tls enabled without key",
			mutate: func(c *Config) {
				c.Security.TLS.Enabled = true
				c.Security.TLS.CertFile = "cert.pem"
			},
			errorField: "security.tls.key_file",
		},
		{
			name:       "bad tls version",
			mutate:     func(c *Config) { c.Security.TLS.MinVersion = "1.0" },
			errorField: "security.tls.min_version",
		},
		{
			name:       "rule without equals",
			mutate:     func(c *Config) { c.Routing.Rules = []string{"gpt-4"} },
			errorField: "routing.rules[0]",
		},
		{
			name:       "rule without providers",
			mutate:     func(c *Config) { c.Routing.Rules = []string{"ok=a", "gpt-*= , "} },
			errorField: "routing.rules[1]",
		},
		{
			name:       "rule with two equals",
			mutate:     func(c *Config) { c.Routing.Rules = []string{"a=b=c"} },
			errorField: "routing.rules[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			fields := fieldsOf(t, err)
			if !contains(fields, tt.errorField) {
				t.Errorf("expected error on %q, got %v", tt.errorField, fields)
			}
		})
	}
}

func TestValidate_TLSDisabledNeedsNoFiles(t *testing.T) {
	cfg := Default()
	cfg.Security.TLS.Enabled = false
	cfg.Security.TLS.CertFile = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Proxy.ListenAddress = ""
	cfg.Upstream.BaseURL = ""
	cfg.Routing.Rules = []string{"broken"}

	err := Validate(cfg)
	fields := fieldsOf(t, err)
	if len(fields) < 3 {
		t.Errorf("expected at least 3 errors, got %v", fields)
	}
	if !strings.Contains(err.Error(), "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a.b", Message: "is required"}}}
	if got := single.Error(); got != "configuration validation failed: a.b: is required" {
		t.Errorf("Error() = %q", got)
	}
	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("Error() = %q", got)
	}
}
