// Package health provides liveness, readiness and version endpoints.
//
// # Endpoints
//
//   - / and /health: liveness, always 200 while the process serves
//   - /ready: readiness, 503 when a registered check fails
//   - /version: build information
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("routing", health.RoutingCheck(table))
//	if reloader != nil {
//	    checker.RegisterCheck("tls", health.CertificateCheck(reloader))
//	}
//	checker.Register(mux, cfg.Telemetry.Health, health.NewVersionInfo(version, commit, date))
package health
