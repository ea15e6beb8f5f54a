package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// MaxRequestBodySize is the default inbound body limit (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// AuthorizationHeader is the HTTP header carrying the bearer credential.
	AuthorizationHeader = "Authorization"

	// BearerPrefix is the case-sensitive scheme prefix, including its single space.
	BearerPrefix = "Bearer "
)

// ExtractBearerToken returns the credential that follows "Bearer " in the
// Authorization header. The token itself is not validated; an empty token
// after the prefix is returned as-is.
func ExtractBearerToken(h http.Header) (string, error) {
	values := h.Values(AuthorizationHeader)
	if len(values) == 0 {
		return "", &AuthError{Reason: AuthMissing, Message: "Missing Authorization header"}
	}
	if len(values) > 1 {
		return "", &AuthError{Reason: AuthMalformed, Message: "Multiple Authorization headers"}
	}

	value := values[0]
	if !isVisibleText(value) {
		return "", &AuthError{Reason: AuthMalformed, Message: "Invalid Authorization header encoding"}
	}
	if !strings.HasPrefix(value, BearerPrefix) {
		return "", &AuthError{
			Reason:  AuthMalformed,
			Message: "Invalid Authorization format, expected 'Bearer YOUR_API_KEY'",
		}
	}

	return value[len(BearerPrefix):], nil
}

// isVisibleText reports whether s only holds visible ASCII, spaces and tabs,
// which is what a header value must contain to be read as text.
func isVisibleText(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\t' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// ReadBody reads the whole inbound body, enforcing limit bytes.
// A body over the limit yields a RequestError with status 413; any other
// read failure is an IOError.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if limit <= 0 {
		limit = MaxRequestBodySize
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &RequestError{
				Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxErr.Limit),
				Status:  http.StatusRequestEntityTooLarge,
			}
		}
		return nil, &IOError{Op: "read request body", Err: err}
	}

	return body, nil
}
