package search

import (
	"fmt"
	"strings"

	"github.com/mnh/careline/internal/domain/records"
)

// Issue is one rejected input field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed or out-of-range search input. It is
// always returned before any store access.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasField reports whether any issue names field.
func (e *ValidationError) HasField(field string) bool {
	for _, is := range e.Issues {
		if is.Field == field {
			return true
		}
	}
	return false
}

// QueryExecutionError wraps a store failure. Query is the redacted
// description and never contains bound values.
type QueryExecutionError struct {
	Kind  records.Kind
	Query string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("search %s failed [%s]: %v", e.Kind, e.Query, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }
