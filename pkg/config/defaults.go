package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress   = "0.0.0.0:3000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 0
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576          // 1MB
	DefaultMaxBodyBytes    = 10 * 1024 * 1024 // 10MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Upstream defaults
	DefaultUpstreamBaseURL               = "https://openrouter.ai/api/v1"
	DefaultUpstreamResponseHeaderTimeout = 120 * time.Second
	DefaultUpstreamDialTimeout           = 10 * time.Second
	DefaultUpstreamTLSHandshakeTimeout   = 10 * time.Second
	DefaultUpstreamIdleConnTimeout       = 90 * time.Second
	DefaultUpstreamMaxIdleConns          = 100
	DefaultUpstreamMaxIdleConnsPerHost   = 20
	DefaultUpstreamStreamBufferSize      = 32 * 1024

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "orproxy"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingService     = "orproxy"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultVersionPath        = "/version"
	DefaultHealthCheckTimeout = 5 * time.Second

	// Security defaults
	DefaultTLSEnabled             = false
	DefaultTLSMinVersion          = "1.2"
	DefaultTLSWatch               = true
	DefaultTLSExpiryCheckSchedule = "@every 6h"
	DefaultTLSExpiryWarning       = 30 * 24 * time.Hour
)

// DefaultRequestDurationBuckets covers fast model listings up to long
// non-streamed completions.
var DefaultRequestDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Default returns a fully populated configuration. YAML is decoded on top
// of it, so booleans that default to true stay true unless a file sets
// them to false.
func Default() *Config {
	cfg := &Config{
		Proxy: ProxyConfig{
			CORS: CORSConfig{Enabled: DefaultCORSEnabled},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactSecrets: true},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{Enabled: DefaultTracingEnabled, Insecure: true},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
		Security: SecurityConfig{
			TLS: TLSConfig{Enabled: DefaultTLSEnabled, Watch: DefaultTLSWatch},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent. Boolean defaults are owned by Default.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Proxy.MaxBodyBytes == 0 {
		cfg.Proxy.MaxBodyBytes = DefaultMaxBodyBytes
	}
	applyCORSDefaults(&cfg.Proxy.CORS)

	applyUpstreamDefaults(&cfg.Upstream)
	applyTelemetryDefaults(&cfg.Telemetry)

	// Security defaults
	if cfg.Security.TLS.MinVersion == "" {
		cfg.Security.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Security.TLS.ExpiryCheckSchedule == "" {
		cfg.Security.TLS.ExpiryCheckSchedule = DefaultTLSExpiryCheckSchedule
	}
	if cfg.Security.TLS.ExpiryWarning == 0 {
		cfg.Security.TLS.ExpiryWarning = DefaultTLSExpiryWarning
	}
}

// applyCORSDefaults allows everything unless narrowed by configuration.
func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"*"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"*"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyUpstreamDefaults(up *UpstreamConfig) {
	if up.BaseURL == "" {
		up.BaseURL = DefaultUpstreamBaseURL
	}
	if up.ResponseHeaderTimeout == 0 {
		up.ResponseHeaderTimeout = DefaultUpstreamResponseHeaderTimeout
	}
	if up.DialTimeout == 0 {
		up.DialTimeout = DefaultUpstreamDialTimeout
	}
	if up.TLSHandshakeTimeout == 0 {
		up.TLSHandshakeTimeout = DefaultUpstreamTLSHandshakeTimeout
	}
	if up.IdleConnTimeout == 0 {
		up.IdleConnTimeout = DefaultUpstreamIdleConnTimeout
	}
	if up.MaxIdleConns == 0 {
		up.MaxIdleConns = DefaultUpstreamMaxIdleConns
	}
	if up.MaxIdleConnsPerHost == 0 {
		up.MaxIdleConnsPerHost = DefaultUpstreamMaxIdleConnsPerHost
	}
	if up.StreamBufferSize == 0 {
		up.StreamBufferSize = DefaultUpstreamStreamBufferSize
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 && t.Tracing.Sampler == "ratio" {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
