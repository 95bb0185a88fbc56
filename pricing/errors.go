package pricing

import "fmt"

// ValidationError reports malformed pricing input: an empty field list, a
// non-positive acreage, or a duplicate field identifier. It always surfaces
// to the caller; the engine never recovers from it silently.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports a missing or inconsistent tier-rate or fee
// schedule. It is fatal at service startup, not a per-request condition.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func configurationErrorf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}
