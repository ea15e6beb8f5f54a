package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/orproxy/pkg/proxy/types"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// The body is encoded before any header is written so an encoding failure
// can still be reported with a clean status.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes the JSON error envelope with the status derived
// from its type. If the envelope cannot be encoded a fixed fallback body is
// written with status 500.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()

	body, err := json.Marshal(errResp)
	if err != nil {
		statusCode = http.StatusInternalServerError
		body = []byte(types.SerializationFallback)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, werr := io.WriteString(w, string(body))
	return werr
}

// WriteError classifies err and writes the matching error envelope.
func WriteError(w http.ResponseWriter, err error) *types.ErrorResponse {
	errResp := HandleError(err)
	_ = WriteErrorResponse(w, errResp)
	return errResp
}
