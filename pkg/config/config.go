package config

import "time"

// Config is the root configuration structure for the proxy. It is built
// once at startup and treated as read-only afterwards.
type Config struct {
	// Proxy contains the inbound HTTP server configuration including listen
	// address, timeouts and body limits.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream contains the upstream API base URL and client pool settings.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Routing contains the model-to-provider routing rules.
	Routing RoutingConfig `yaml:"routing"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS settings for the inbound listener.
	Security SecurityConfig `yaml:"security"`
}

// ProxyConfig contains configuration for the inbound HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:3000", "0.0.0.0:3000").
	// Default: "0.0.0.0:3000"
	ListenAddress string `yaml:"listen_address" validate:"required"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Zero means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It also bounds event streams, so the default is no timeout.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout" validate:"gte=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" validate:"gte=0,lte=10485760"`

	// MaxBodyBytes limits the inbound request body.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gt=0"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration. The defaults allow any origin,
// method and header.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists allowed methods. ["*"] allows all.
	// Default: ["*"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists allowed request headers. ["*"] allows all.
	// Default: ["*"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders lists headers exposed to the browser.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age" validate:"gte=0"`

	// AllowCredentials controls Access-Control-Allow-Credentials.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// UpstreamConfig configures the upstream inference API client.
type UpstreamConfig struct {
	// BaseURL is the upstream API root. Requests go to BaseURL + "/" + path.
	// Default: "https://openrouter.ai/api/v1"
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// Streamed bodies are never bounded.
	// Default: 120s
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" validate:"gte=0"`

	// DialTimeout bounds upstream connection establishment.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout" validate:"gte=0"`

	// TLSHandshakeTimeout bounds the upstream TLS handshake.
	// Default: 10s
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout" validate:"gte=0"`

	// IdleConnTimeout closes idle pooled connections.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" validate:"gte=0"`

	// MaxIdleConns is the total idle connection pool size.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns" validate:"gte=0"`

	// MaxIdleConnsPerHost is the per-host idle connection pool size.
	// Default: 20
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host" validate:"gte=0"`

	// StreamBufferSize is the read size for relaying event streams.
	// Default: 32768
	StreamBufferSize int `yaml:"stream_buffer_size" validate:"gte=0,lte=1048576"`
}

// RoutingConfig contains model routing rules.
type RoutingConfig struct {
	// Rules are "pattern=provider1,provider2" entries evaluated in order;
	// the first matching pattern wins. Patterns support a leading and/or
	// trailing '*' wildcard.
	// Example: ["gpt-*=openai,azure", "*claude*=anthropic"]
	Rules []string `yaml:"rules"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format" validate:"oneof=json text"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks bearer tokens and API keys in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path" validate:"omitempty,startswith=/"`

	// Namespace is the metric name prefix.
	// Default: "orproxy"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets are histogram buckets in seconds.
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler" validate:"oneof=always never ratio"`

	// SampleRatio is the fraction of traces to sample when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`

	// ServiceName is the service name in traces.
	// Default: "orproxy"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are registered.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path. "/" is always served too.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path" validate:"omitempty,startswith=/"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path" validate:"omitempty,startswith=/"`

	// VersionPath is the version information path.
	// Default: "/version"
	VersionPath string `yaml:"version_path" validate:"omitempty,startswith=/"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout" validate:"gte=0"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// TLS contains TLS configuration for the inbound listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM certificate chain.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file" validate:"required_if=Enabled true"`

	// KeyFile is the path to the PEM private key.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file" validate:"required_if=Enabled true"`

	// MinVersion is the minimum TLS version to accept.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version" validate:"oneof=1.2 1.3"`

	// Watch reloads the certificate when either file changes on disk.
	// Default: true
	Watch bool `yaml:"watch"`

	// ExpiryCheckSchedule is a cron expression for the certificate expiry check.
	// Empty disables the check.
	// Default: "@every 6h"
	ExpiryCheckSchedule string `yaml:"expiry_check_schedule"`

	// ExpiryWarning is how far ahead of expiry a warning is logged.
	// Default: 720h (30 days)
	ExpiryWarning time.Duration `yaml:"expiry_warning" validate:"gte=0"`
}
