package cli

import (
	"errors"
	"fmt"

	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/routing"
)

// Exit codes returned by the orproxy binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError represents an error in configuration. It is fatal at startup.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// WrapConfigError turns configuration and routing rule failures into a
// *ConfigError. A single field error keeps its field name. Other errors,
// such as an unreadable file, are wrapped with an empty field.
func WrapConfigError(err error) error {
	if err == nil {
		return nil
	}

	var existing *ConfigError
	if errors.As(err, &existing) {
		return err
	}

	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) == 1 {
		fe := verr.Errors[0]
		return &ConfigError{Field: fe.Field, Message: fe.Message, Err: err}
	}

	var rerr *routing.ConfigError
	if errors.As(err, &rerr) {
		return &ConfigError{Field: "routing.rules", Message: rerr.Error(), Err: err}
	}

	return &ConfigError{Message: err.Error(), Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cerr *ConfigError
	if errors.As(err, &cerr) {
		return ExitConfig
	}
	return ExitFailure
}
