package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ORPROXY_UPSTREAM_BASE_URL.
const EnvPrefix = "ORPROXY_"

// DefaultConfigPath is used when no --config flag is given. A missing file
// at this path is not an error.
const DefaultConfigPath = "orproxy.yaml"

// LoadOptions controls Load.
type LoadOptions struct {
	// ConfigPath is the YAML file to read. Empty means DefaultConfigPath.
	ConfigPath string

	// RequireFile makes a missing ConfigPath an error. Set it when the
	// path was given explicitly.
	RequireFile bool

	// EnvFiles are .env files loaded before anything else. Missing files
	// are skipped and never override variables already set.
	EnvFiles []string

	// Overrides are applied last, after environment variables.
	Overrides Overrides
}

// Overrides carries command-line flag values. Zero values leave the
// configuration untouched.
type Overrides struct {
	ListenAddress string
	Host          string
	Port          int
	BaseURL       string
	Routes        []string
	TLSCertFile   string
	TLSKeyFile    string
	HTTPS         *bool
	LogLevel      string
	LogFormat     string
}

// Load builds the configuration in this order:
//  1. .env files
//  2. YAML file on top of Default()
//  3. default values for fields left empty
//  4. ORPROXY_* environment overrides
//  5. command-line overrides
//  6. validation
func Load(opts LoadOptions) (*Config, error) {
	if err := LoadEnvFiles(opts.EnvFiles...); err != nil {
		return nil, err
	}

	path := opts.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	cfg, err := LoadConfig(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !opts.RequireFile:
		cfg = Default()
	default:
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := ApplyOverrides(cfg, opts.Overrides); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env files into the process environment. Missing files
// are ignored; variables already set are never overridden.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %q: %w", p, err)
		}
	}
	return nil
}

// LoadConfig reads a YAML file on top of Default and applies defaults to
// anything the file left empty. It does not validate.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// envError reports an unparseable environment override.
func envError(name, value string, err error) error {
	return fmt.Errorf("invalid value %q for %s: %w", value, name, err)
}

type envReader struct {
	err error
}

func (r *envReader) str(name string, dst *string) {
	if val, ok := os.LookupEnv(EnvPrefix + name); ok && val != "" {
		*dst = val
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" || r.err != nil {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.err = envError(EnvPrefix+name, val, err)
		return
	}
	*dst = d
}

func (r *envReader) integer(name string, dst *int) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" || r.err != nil {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		r.err = envError(EnvPrefix+name, val, err)
		return
	}
	*dst = i
}

func (r *envReader) integer64(name string, dst *int64) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" || r.err != nil {
		return
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		r.err = envError(EnvPrefix+name, val, err)
		return
	}
	*dst = i
}

func (r *envReader) boolean(name string, dst *bool) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.err = envError(EnvPrefix+name, val, err)
		return
	}
	*dst = b
}

func (r *envReader) float(name string, dst *float64) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" || r.err != nil {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.err = envError(EnvPrefix+name, val, err)
		return
	}
	*dst = f
}

// applyEnvOverrides applies ORPROXY_SECTION_FIELD variables. Unlike a
// silently ignored typo, an unparseable value is an error.
func applyEnvOverrides(cfg *Config) error {
	r := &envReader{}

	// Proxy overrides
	r.str("PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	r.duration("PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	r.duration("PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	r.duration("PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	r.duration("PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	r.integer("PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	r.integer64("PROXY_MAX_BODY_BYTES", &cfg.Proxy.MaxBodyBytes)
	r.boolean("PROXY_CORS_ENABLED", &cfg.Proxy.CORS.Enabled)

	// Upstream overrides
	r.str("UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	r.duration("UPSTREAM_RESPONSE_HEADER_TIMEOUT", &cfg.Upstream.ResponseHeaderTimeout)
	r.duration("UPSTREAM_DIAL_TIMEOUT", &cfg.Upstream.DialTimeout)
	r.integer("UPSTREAM_MAX_IDLE_CONNS", &cfg.Upstream.MaxIdleConns)
	r.integer("UPSTREAM_MAX_IDLE_CONNS_PER_HOST", &cfg.Upstream.MaxIdleConnsPerHost)

	// Routing overrides
	if val, ok := os.LookupEnv(EnvPrefix + "ROUTING_RULES"); ok && strings.TrimSpace(val) != "" {
		cfg.Routing.Rules = SplitRules(val)
	}

	// Telemetry overrides
	r.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	r.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	r.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	r.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	r.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	r.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	r.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	// Security overrides
	r.boolean("SECURITY_TLS_ENABLED", &cfg.Security.TLS.Enabled)
	r.str("SECURITY_TLS_CERT_FILE", &cfg.Security.TLS.CertFile)
	r.str("SECURITY_TLS_KEY_FILE", &cfg.Security.TLS.KeyFile)

	return r.err
}

// SplitRules splits a ';'-separated rule list, dropping blank entries.
func SplitRules(s string) []string {
	var rules []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			rules = append(rules, part)
		}
	}
	return rules
}

// ApplyOverrides applies command-line values to cfg.
func ApplyOverrides(cfg *Config, o Overrides) error {
	if o.ListenAddress != "" {
		cfg.Proxy.ListenAddress = o.ListenAddress
	}
	if o.Host != "" || o.Port != 0 {
		host, port, err := net.SplitHostPort(cfg.Proxy.ListenAddress)
		if err != nil {
			return fmt.Errorf("invalid listen address %q: %w", cfg.Proxy.ListenAddress, err)
		}
		if o.Host != "" {
			host = o.Host
		}
		if o.Port != 0 {
			port = strconv.Itoa(o.Port)
		}
		cfg.Proxy.ListenAddress = net.JoinHostPort(host, port)
	}
	if o.BaseURL != "" {
		cfg.Upstream.BaseURL = o.BaseURL
	}
	if len(o.Routes) > 0 {
		cfg.Routing.Rules = append([]string(nil), o.Routes...)
	}
	if o.TLSCertFile != "" {
		cfg.Security.TLS.CertFile = o.TLSCertFile
	}
	if o.TLSKeyFile != "" {
		cfg.Security.TLS.KeyFile = o.TLSKeyFile
	}
	if o.HTTPS != nil {
		cfg.Security.TLS.Enabled = *o.HTTPS
	}
	if o.LogLevel != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(o.LogLevel)
	}
	if o.LogFormat != "" {
		cfg.Telemetry.Logging.Format = strings.ToLower(o.LogFormat)
	}
	return nil
}
