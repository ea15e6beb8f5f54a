// Package middleware provides the HTTP middleware wrapped around the
// proxy's router.
//
// # Middleware Chain
//
// The server applies middleware in this order (outermost first):
//
//  1. RecoveryMiddleware - panics become a 500 server_error envelope
//  2. LoggingMiddleware - one structured access log line per request
//  3. RequestIDMiddleware - X-Request-ID generation and propagation
//  4. CORSMiddleware - CORS headers and preflight answers
//
// No timeout middleware is installed, since streams may run for minutes.
// Upstream latency is bounded by the forwarder's ResponseHeaderTimeout.
//
// # Request IDs
//
// A client-supplied X-Request-ID is kept when it is printable ASCII of at
// most 128 bytes; otherwise a UUIDv4 is generated. The ID is stored with
// logging.WithRequestID so every log call made with the request context
// carries it.
//
// # Streaming
//
// The response writer wrappers implement Unwrap and Flush, so
// http.ResponseController flushes reach the connection through the chain.
//
// # Recovery
//
// http.ErrAbortHandler is re-panicked so net/http drops the connection.
// A panic after headers were written is converted into that abort.
package middleware
