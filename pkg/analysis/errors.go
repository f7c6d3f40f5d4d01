package analysis

import (
	"errors"
	"fmt"
)

// ErrInvalidRange marks a run whose lower date bound is after its upper
// bound. Detected before any fetching begins.
var ErrInvalidRange = errors.New("since is after to")

// ConfigError reports an invalid run configuration. Fatal: the run aborts
// before contacting the version-control system.
type ConfigError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
