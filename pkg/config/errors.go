package config

import (
	"errors"
	"fmt"
)

// Configuration-related error definitions using sentinel errors pattern
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidFormat  = errors.New("invalid configuration file format")

	ErrMissingRequired = errors.New("missing required configuration item")
	ErrInvalidValue    = errors.New("invalid configuration value")
	ErrInvalidCron     = errors.New("invalid cron expression")
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrDuplicateApp    = errors.New("duplicate app name")
)

// ConfigurationError reports a missing or invalid setting. It is fatal at
// startup.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}
