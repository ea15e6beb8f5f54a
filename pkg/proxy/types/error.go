package types

import "net/http"

// ErrorResponse is the JSON envelope returned for every failed request.
//
//	{"error": {"message": "...", "type": "auth_error"}}
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error. See the ErrorType constants.
	Type string `json:"type"`

	// status overrides the status derived from Type when non-zero.
	status int
}

// Error type constants. Clients match on these strings.
const (
	// ErrorTypeAuth indicates a missing or malformed bearer credential (401).
	ErrorTypeAuth = "auth_error"

	// ErrorTypeParse indicates the request body is not a valid JSON object (400).
	ErrorTypeParse = "parse_error"

	// ErrorTypeProxy indicates the upstream could not be reached or its
	// response could not be read (502).
	ErrorTypeProxy = "proxy_error"

	// ErrorTypeRequest indicates the outbound request could not be built or
	// the inbound request could not be accepted (502).
	ErrorTypeRequest = "request_error"

	// ErrorTypeTLS indicates a certificate or TLS setup failure (500).
	ErrorTypeTLS = "tls_error"

	// ErrorTypeIO indicates a local read or write failure (500).
	ErrorTypeIO = "io_error"

	// ErrorTypeServer is the catch-all for internal faults (500).
	ErrorTypeServer = "server_error"
)

// SerializationFallback is written verbatim when the envelope itself cannot be encoded.
const SerializationFallback = `{"error":{"message":"Failed to serialize error response","type":"internal_error"}}`

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
		},
	}
}

// WithStatus pins the HTTP status of the response regardless of its type.
func (e *ErrorResponse) WithStatus(status int) *ErrorResponse {
	e.Error.status = status
	return e
}

// NewAuthError creates an auth_error response (401).
func NewAuthError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeAuth)
}

// NewParseError creates a parse_error response (400).
func NewParseError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeParse)
}

// NewProxyError creates a proxy_error response (502).
func NewProxyError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeProxy)
}

// NewServerError creates a server_error response (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServer)
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Type {
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeParse:
		return http.StatusBadRequest
	case ErrorTypeProxy, ErrorTypeRequest:
		return http.StatusBadGateway
	case ErrorTypeTLS, ErrorTypeIO, ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
