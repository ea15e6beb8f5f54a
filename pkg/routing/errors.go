package routing

import (
	"errors"
	"fmt"
)

// ErrInvalidRule is matched by every ConfigError via errors.Is.
var ErrInvalidRule = errors.New("invalid routing rule")

// ConfigError is returned when a routing rule cannot be parsed.
// It is detected at load time and is fatal to startup.
type ConfigError struct {
	// Rule is the raw rule text as supplied by the operator.
	Rule string

	// Index is the position of the rule in the configured list, or -1
	// when the rule was parsed on its own.
	Index int

	// Message describes what is wrong with the rule.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("routing rule #%d %q: %s", e.Index+1, e.Rule, e.Message)
	}
	return fmt.Sprintf("routing rule %q: %s", e.Rule, e.Message)
}

// Is implements error matching for errors.Is().
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidRule
}
