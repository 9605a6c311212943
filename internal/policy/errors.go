package policy

import "fmt"

// ValidationError rejects a request before any state is changed.
type ValidationError struct {
	Field   string
	Reason  string
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Details: map[string]any{}}
}
