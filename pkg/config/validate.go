package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"mercator-hq/orproxy/pkg/routing"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

// tagValidator returns the shared validator. Field paths in errors use the
// yaml names so messages match the configuration file.
func tagValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate validates the configuration and returns a ValidationError
// listing every problem found, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTags(cfg)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateTags runs the struct-tag rules.
func validateTags(cfg *Config) []FieldError {
	err := tagValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "config", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: tagMessage(fe),
		})
	}
	return out
}

// fieldPath turns "Config.proxy.listen_address" into "proxy.listen_address".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	if cfg.ListenAddress == "" {
		// Reported by the required tag.
		return nil
	}

	_, port, err := net.SplitHostPort(cfg.ListenAddress)
	if err != nil {
		return []FieldError{{
			Field:   "proxy.listen_address",
			Message: fmt.Sprintf("must be host:port: %v", err),
		}}
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return []FieldError{{
			Field:   "proxy.listen_address",
			Message: fmt.Sprintf("invalid port %q", port),
		}}
	}
	return nil
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	if cfg.BaseURL == "" {
		return nil
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		// Reported by the url tag.
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []FieldError{{
			Field:   "upstream.base_url",
			Message: "scheme must be http or https",
		}}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return []FieldError{{
			Field:   "upstream.base_url",
			Message: "must not contain a query or fragment",
		}}
	}
	return nil
}

// validateRouting parses every rule so syntax errors are fatal at startup.
func validateRouting(cfg *RoutingConfig) []FieldError {
	var errs []FieldError
	for i, raw := range cfg.Rules {
		if _, err := routing.ParseRule(raw); err != nil {
			var cerr *routing.ConfigError
			msg := err.Error()
			if errors.As(err, &cerr) {
				msg = fmt.Sprintf("%q: %s", raw, cerr.Message)
			}
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("routing.rules[%d]", i),
				Message: msg,
			})
		}
	}
	return errs
}

// RoutingTable builds the immutable routing table from a validated config.
func (c *Config) RoutingTable() (*routing.Table, error) {
	return routing.ParseRules(c.Routing.Rules)
}
