package schema

import "fmt"

// ValidationError represents a single integrity failure of a question graph.
type ValidationError struct {
	QuestionID string // Offending question, empty for schema-level problems
	Reason     string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	if e.QuestionID == "" {
		return e.Reason
	}
	return fmt.Sprintf("question %q: %s", e.QuestionID, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
