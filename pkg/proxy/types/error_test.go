package types

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		errType string
		want    int
	}{
		{ErrorTypeAuth, http.StatusUnauthorized},
		{ErrorTypeParse, http.StatusBadRequest},
		{ErrorTypeProxy, http.StatusBadGateway},
		{ErrorTypeRequest, http.StatusBadGateway},
		{ErrorTypeTLS, http.StatusInternalServerError},
		{ErrorTypeIO, http.StatusInternalServerError},
		{ErrorTypeServer, http.StatusInternalServerError},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.errType, func(t *testing.T) {
			resp := NewErrorResponse("boom", tt.errType)
			if got := resp.Error.HTTPStatusCode(); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithStatusOverride(t *testing.T) {
	resp := NewErrorResponse("too big", ErrorTypeRequest).WithStatus(http.StatusRequestEntityTooLarge)
	if got := resp.Error.HTTPStatusCode(); got != http.StatusRequestEntityTooLarge {
		t.Errorf("HTTPStatusCode() = %d, want %d", got, http.StatusRequestEntityTooLarge)
	}
}

func TestErrorResponseEnvelope(t *testing.T) {
	data, err := json.Marshal(NewAuthError("Missing Authorization header"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"error":{"message":"Missing Authorization header","type":"auth_error"}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestSerializationFallbackIsValidJSON(t *testing.T) {
	var v ErrorResponse
	if err := json.Unmarshal([]byte(SerializationFallback), &v); err != nil {
		t.Fatalf("fallback is not valid JSON: %v", err)
	}
	if v.Error.Type != "internal_error" {
		t.Errorf("Type = %q, want internal_error", v.Error.Type)
	}
}
