package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/routing"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "proxy.listen_address",
		Message: "missing required field",
	}

	expected := "config error in proxy.listen_address: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	noField := &ConfigError{Message: "file not found"}
	if noField.Error() != "config error: file not found" {
		t.Errorf("Error() = %q", noField.Error())
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("field", "message")
	if err.Field != "field" {
		t.Errorf("Field = %q, want %q", err.Field, "field")
	}
	if err.Message != "message" {
		t.Errorf("Message = %q, want %q", err.Message, "message")
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("CommandError should unwrap to the underlying error")
	}
}

func TestWrapConfigError(t *testing.T) {
	if WrapConfigError(nil) != nil {
		t.Fatal("WrapConfigError(nil) should be nil")
	}

	t.Run("single field error keeps field", func(t *testing.T) {
		verr := config.ValidationError{Errors: []config.FieldError{
			{Field: "upstream.base_url", Message: "must be a valid URL"},
		}}
		err := WrapConfigError(fmt.Errorf("load: %w", verr))

		var cerr *ConfigError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected *ConfigError, got %T", err)
		}
		if cerr.Field != "upstream.base_url" || cerr.Message != "must be a valid URL" {
			t.Errorf("got %+v", cerr)
		}
		var back config.ValidationError
		if !errors.As(err, &back) {
			t.Error("wrapped ValidationError should remain reachable")
		}
	})

	t.Run("multiple field errors", func(t *testing.T) {
		verr := config.ValidationError{Errors: []config.FieldError{
			{Field: "a", Message: "x"},
			{Field: "b", Message: "y"},
		}}
		var cerr *ConfigError
		if !errors.As(WrapConfigError(verr), &cerr) {
			t.Fatal("expected *ConfigError")
		}
		if cerr.Field != "" || !strings.Contains(cerr.Message, "2 errors") {
			t.Errorf("got %+v", cerr)
		}
	})

	t.Run("routing rule error", func(t *testing.T) {
		_, rerr := routing.ParseRule("no-equals-sign")
		var cerr *ConfigError
		if !errors.As(WrapConfigError(rerr), &cerr) {
			t.Fatal("expected *ConfigError")
		}
		if cerr.Field != "routing.rules" {
			t.Errorf("Field = %q", cerr.Field)
		}
		if !errors.Is(cerr, routing.ErrInvalidRule) {
			t.Error("routing error should remain reachable")
		}
	})

	t.Run("already wrapped", func(t *testing.T) {
		orig := NewConfigError("output", "bad")
		if WrapConfigError(orig) != error(orig) {
			t.Error("existing ConfigError should be returned unchanged")
		}
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "config", err: NewConfigError("f", "m"), want: ExitConfig},
		{name: "wrapped config", err: NewCommandError("run", NewConfigError("f", "m")), want: ExitConfig},
		{name: "other", err: errors.New("boom"), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
