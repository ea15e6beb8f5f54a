package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/orproxy/pkg/config"
)

// CORSMiddleware adds Cross-Origin Resource Sharing headers. With the
// default configuration any origin, method and header is allowed.
//
// Only real preflights (OPTIONS carrying Origin and
// Access-Control-Request-Method) are answered here with 204; any other
// OPTIONS request reaches the router and may be proxied.
//
// Example usage:
//
//	handler = CORSMiddleware(&cfg.Proxy.CORS)(handler)
func CORSMiddleware(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}

		wildcardOrigin := slices.Contains(cfg.AllowedOrigins, "*")
		wildcardMethod := slices.Contains(cfg.AllowedMethods, "*")
		wildcardHeader := slices.Contains(cfg.AllowedHeaders, "*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")

			switch {
			case cfg.AllowCredentials && (wildcardOrigin || slices.Contains(cfg.AllowedOrigins, origin)):
				// Credentialed requests may not use "*".
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			case wildcardOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case slices.Contains(cfg.AllowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
			default:
				next.ServeHTTP(w, r)
				return
			}

			if len(cfg.ExposedHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(cfg.ExposedHeaders, ", "))
			}

			reqMethod := r.Header.Get("Access-Control-Request-Method")
			if r.Method != http.MethodOptions || reqMethod == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Preflight.
			if wildcardMethod {
				h.Set("Access-Control-Allow-Methods", reqMethod)
			} else if len(cfg.AllowedMethods) > 0 {
				h.Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			}

			if wildcardHeader {
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
			} else if len(cfg.AllowedHeaders) > 0 {
				h.Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
			}

			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}

			w.WriteHeader(http.StatusNoContent)
		})
	}
}
