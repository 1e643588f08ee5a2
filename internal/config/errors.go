package config

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrConfig is the kind shared by every configuration failure.
var ErrConfig = errors.New("configuration error")

// ConfigError names the setting that is missing or invalid.
type ConfigError struct {
	Var    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("environment variable %s not set", e.Var)
	}
	return fmt.Sprintf("invalid %s: %s", e.Var, e.Reason)
}

// Is lets errors.Is(err, ErrConfig) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func missing(name string) error {
	return &ConfigError{Var: name}
}

func invalid(name, format string, args ...interface{}) error {
	return &ConfigError{Var: name, Reason: fmt.Sprintf(format, args...)}
}
