package features

import "fmt"

// ValidationError signals malformed or missing required ledger fields, or a
// schema mismatch between the fitted scaler and incoming data. Validation
// failures fail fast and are surfaced to the caller; they are never silently
// coerced. Degenerate statistics, by contrast, resolve locally to zero
// defaults and never raise.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
