package proxy

import (
	"errors"
	"fmt"

	"mercator-hq/orproxy/pkg/proxy/types"
)

// AuthReason distinguishes why a credential was rejected.
type AuthReason int

const (
	// AuthMissing means no Authorization header was sent.
	AuthMissing AuthReason = iota
	// AuthMalformed means the header was present but unusable.
	AuthMalformed
)

// AuthError is returned when the inbound bearer credential is missing or malformed.
type AuthError struct {
	Reason  AuthReason
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ParseError is returned when a request body that must be rewritten is not
// a JSON object, or when the rewritten body cannot be produced.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// ProxyError is returned when the upstream cannot be reached or its
// response cannot be read.
type ProxyError struct {
	Message string
	Err     error
}

func (e *ProxyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProxyError) Unwrap() error { return e.Err }

// RequestError is returned when a request cannot be accepted or the
// outbound request cannot be built. Status overrides the default 502.
type RequestError struct {
	Message string
	Status  int
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

// IOError wraps local read/write failures.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TLSError wraps certificate loading and TLS setup failures.
type TLSError struct {
	Message string
	Err     error
}

func (e *TLSError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TLSError) Unwrap() error { return e.Err }

// ServerError is the catch-all for internal faults.
type ServerError struct {
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServerError) Unwrap() error { return e.Err }

// HandleError converts the proxy error taxonomy into the JSON error envelope.
// Unknown errors are reported as server_error without exposing their text.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return types.NewAuthError(authErr.Error())
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return types.NewParseError(parseErr.Error())
	}

	var proxyErr *ProxyError
	if errors.As(err, &proxyErr) {
		return types.NewProxyError(proxyErr.Error())
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		resp := types.NewErrorResponse(reqErr.Error(), types.ErrorTypeRequest)
		if reqErr.Status != 0 {
			resp.WithStatus(reqErr.Status)
		}
		return resp
	}

	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return types.NewErrorResponse(ioErr.Error(), types.ErrorTypeIO)
	}

	var tlsErr *TLSError
	if errors.As(err, &tlsErr) {
		return types.NewErrorResponse(tlsErr.Error(), types.ErrorTypeTLS)
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return types.NewServerError(serverErr.Message)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
