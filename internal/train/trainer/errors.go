package trainer

import (
	"errors"
	"fmt"
)

// ErrConfig matches every *ConfigError with errors.Is.
var ErrConfig = errors.New("invalid trainer configuration")

// ConfigError reports a configuration that cannot be trained.
//
// Config errors are detected before any goroutine starts, so nothing has to
// be unwound when one is returned.
//
// Example output:
//
//	workers: 12 shards cannot be split evenly across 5 workers
//
//	Suggestion: choose a worker count that divides the shard count
//
// Thread Safety: Immutable after creation, safe for concurrent use.
type ConfigError struct {
	Field      string // Config field or dataset at fault
	Message    string // What is wrong
	Suggestion string // Optional hint (empty if none)
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	result := fmt.Sprintf("%s: %s", e.Field, e.Message)
	if e.Suggestion != "" {
		result += fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion)
	}
	return result
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configError(field, suggestion, format string, args ...any) *ConfigError {
	return &ConfigError{
		Field:      field,
		Message:    fmt.Sprintf(format, args...),
		Suggestion: suggestion,
	}
}
