// Package handlers provides the HTTP handlers that proxy requests to the
// upstream inference API.
//
// # Request Flow
//
// Every proxied request follows the same pipeline:
//
//  1. Extract the bearer credential (401 auth_error when missing or malformed)
//  2. Read the body, bounded by the configured limit (413 request_error)
//  3. Rewrite the body with a provider routing hint (400 parse_error on bad JSON)
//  4. Forward to the upstream API with the credential re-issued (502 proxy_error)
//  5. Relay the response, streaming event streams chunk by chunk
//
// Nothing is sent upstream when steps 1 to 3 fail.
//
// # Routing Modes
//
// The route decides how the body is rewritten:
//
//   - /api/v1/chat/completions and /api/v1/embeddings resolve providers
//     from the routing table using the body's "model" field
//   - /v1/{provider}/chat/completions and /v1/{provider}/embeddings pin
//     provider.order to the path provider and qualify the model
//   - /api/v1/models, /v1/{provider}/{other...} and /v1/{path...} are
//     forwarded without touching the body
//
// A first segment under /v1/ that names an endpoint root ("chat",
// "completions", "embeddings", "models") is never read as a provider, so
// /v1/chat/completions is a passthrough to chat/completions.
//
// # Error Handling
//
// Failures before the response starts are written as
//
//	{"error": {"message": "...", "type": "parse_error"}}
//
// Once relaying has begun the status line is already out. A broken upstream
// stream aborts the connection so the client sees a truncated response.
package handlers
