package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"mercator-hq/orproxy/pkg/config"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// NewVersionInfo fills in the runtime fields.
func NewVersionInfo(version, commit, buildDate string) VersionInfo {
	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// LivenessHandler returns the liveness probe handler.
//
// Example response:
//
//	{"status":"ok","timestamp":"2025-11-20T10:30:00Z"}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns the readiness probe handler. It answers 503
// when any check fails.
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "routing": {"status": "ok", "duration_ms": 0.01},
//	        "tls": {"status": "unhealthy", "message": "certificate expired at ..."}
//	    },
//	    "timestamp": "2025-11-20T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.CheckReadiness(r.Context())

		code := http.StatusOK
		if !status.Ready() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler returns a handler serving info.
func VersionHandler(info VersionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, info)
	}
}

// Register mounts the probes on mux using GET patterns (which also match
// HEAD). "/" is always a liveness probe.
func (c *Checker) Register(mux *http.ServeMux, cfg config.HealthConfig, info VersionInfo) {
	liveness := c.LivenessHandler()

	mux.HandleFunc("GET /{$}", liveness)
	if cfg.LivenessPath != "" && cfg.LivenessPath != "/" {
		mux.HandleFunc("GET "+cfg.LivenessPath, liveness)
	}
	if cfg.ReadinessPath != "" {
		mux.HandleFunc("GET "+cfg.ReadinessPath, c.ReadinessHandler())
	}
	if cfg.VersionPath != "" {
		mux.HandleFunc("GET "+cfg.VersionPath, VersionHandler(info))
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
