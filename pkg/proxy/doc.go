// Package proxy holds the request-level pieces shared by every proxied
// endpoint: bearer credential extraction, bounded body reading, and the
// error taxonomy with its mapping onto the JSON error envelope.
//
// # Pipeline
//
// A proxied request flows through:
//
//	ExtractBearerToken -> routing.Table (table mode) -> transform.Transformer
//	    -> upstream.Forwarder -> upstream.Relay
//
// Every step returns one of the typed errors in this package (AuthError,
// ParseError, ProxyError, RequestError, IOError, TLSError, ServerError).
// HandleError converts them into types.ErrorResponse; WriteErrorResponse
// renders the envelope with the status implied by its type.
//
// # Error handling
//
//	token, err := proxy.ExtractBearerToken(r.Header)
//	if err != nil {
//	    proxy.WriteError(w, err)
//	    return
//	}
//
// Nothing in this package retries; failures are reported to the caller
// immediately and never affect later requests.
package proxy
