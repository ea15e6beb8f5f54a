// Package config provides configuration management for the proxy.
//
// Configuration is assembled once at startup and is immutable afterwards.
// The resulting *Config is passed explicitly to the server and handlers;
// there is no package-level instance.
//
// # Configuration Loading
//
//	cfg, err := config.Load(config.LoadOptions{
//	    ConfigPath: "orproxy.yaml",
//	    EnvFiles:   []string{".env"},
//	    Overrides:  config.Overrides{Port: 8080},
//	})
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. .env files (never overriding variables already set)
//  2. Default values (defined in defaults.go)
//  3. Values from the YAML file
//  4. ORPROXY_* environment variables
//  5. Command-line flags
//  6. Validation (fails fast if invalid)
//
// A missing file at the default path is not an error. A file named
// explicitly with --config must exist.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ORPROXY_SECTION_FIELD:
//
//   - ORPROXY_PROXY_LISTEN_ADDRESS overrides proxy.listen_address
//   - ORPROXY_UPSTREAM_BASE_URL overrides upstream.base_url
//   - ORPROXY_ROUTING_RULES overrides routing.rules (';'-separated)
//   - ORPROXY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Validation
//
// Struct tags are checked with go-playground/validator; cross-field rules
// (listen address syntax, upstream scheme, routing rule syntax) are checked
// by hand. Every problem is reported at once:
//
//	configuration validation failed with 2 errors:
//	  - upstream.base_url: must be a valid URL
//	  - routing.rules[0]: "gpt-4": format should be pattern=provider1,provider2
//
// # Example Configuration
//
//	proxy:
//	  listen_address: "0.0.0.0:3000"
//
//	upstream:
//	  base_url: "https://openrouter.ai/api/v1"
//
//	routing:
//	  rules:
//	    - "gpt-*=openai,azure"
//	    - "*claude*=anthropic"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
