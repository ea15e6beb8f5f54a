// Package logging builds the proxy's log/slog logger.
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// # Secret Redaction
//
// When RedactSecrets is enabled a ReplaceAttr hook masks credentials before
// they reach the output:
//
//   - Bearer sk-or-v1-abc... → Bearer [REDACTED]
//   - sk-or-v1-abc... → sk-[REDACTED]
//   - attributes named authorization, api_key, token, secret... → [REDACTED]
//   - http.Header values have their Authorization entries masked
//
// # Request Context
//
// Records logged with a context carrying a request ID (see WithRequestID)
// or a valid OpenTelemetry span get request_id, trace_id and span_id
// attributes added automatically.
package logging
