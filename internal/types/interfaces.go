// internal/types/interfaces.go
package types

import (
	"context"
	"errors"
	"fmt"
)

// Client is the capability surface of one remote sequence backend.
// Implementations never return per-item errors; those come back as Failures.
type Client interface {
	Backend() Backend
	// Search runs free-text queries and returns summary-state records.
	Search(ctx context.Context, terms []string) Result
	// Summarize fetches summaries for known accessions.
	Summarize(ctx context.Context, accessions []string) Result
	// Fetch retrieves full records for known accessions.
	Fetch(ctx context.Context, accessions []string) Result
}

// InputError is raised when the type of session input cannot be determined.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigError is raised for unsupported databases, formats or settings.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Msg)
}

// IsInputError reports whether err wraps an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
