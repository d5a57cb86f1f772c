package config

import "fmt"

// ConfigError reports a malformed definition (duplicate axis names, a step
// with no action, a job declared twice). It is fatal: a run never starts.
type ConfigError struct {
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Subject, e.Reason)
}

// NewConfigError builds a ConfigError for the given subject.
func NewConfigError(subject, format string, args ...any) *ConfigError {
	return &ConfigError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
