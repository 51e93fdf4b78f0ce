package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates Config using struct tags plus cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return c.validateCacheBackend()
}

// validateCacheBackend ensures the fields required by the selected cache
// backend are actually present.
func (c *Config) validateCacheBackend() error {
	switch c.Cache.Backend {
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("cache: redis_addr is required when backend=redis")
		}
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return errors.New("cache: sqlite_path is required when backend=sqlite")
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors into a single
// readable error.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "ip|hostname":
		return fmt.Sprintf("%s must be a valid host or IP", field)
	case "min", "max":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
