package models

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ConfigError is a fatal configuration problem. The run must not start.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(param, format string, args ...any) *ConfigError {
	return &ConfigError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// ErrDegenerateTrainingSet is returned when the classifier cannot be fitted
// because the labelled candidates contain only one class.
var ErrDegenerateTrainingSet = eris.New("degenerate training set")
