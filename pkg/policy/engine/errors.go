package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors for rule configuration loading.
var (
	// ErrUnknownRuleType indicates a rule type id that is not part of the
	// fixed rule enumeration.
	ErrUnknownRuleType = errors.New("unknown rule type")

	// ErrMissingParameter indicates a required rule parameter was absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrInvalidParameter indicates a rule parameter had the wrong type or
	// an out-of-range value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoRules indicates a configuration with an empty rules mapping.
	ErrNoRules = errors.New("policy configuration must include at least one rule")
)

// ConfigError is a load-time rule configuration error. Configuration errors
// are always fatal at load time and never deferred to evaluation.
type ConfigError struct {
	RuleType string
	Param    string
	Cause    error
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("rule %q: parameter %q: %v", e.RuleType, e.Param, e.Cause)
	}
	return fmt.Sprintf("rule %q: %v", e.RuleType, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
