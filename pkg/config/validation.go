package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/evolve-go/pkg/errors"
)

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field string
	Tag   string
	Value interface{}
}

func (e *ValidationError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min":
		return fmt.Sprintf("%s is below the minimum", e.Field)
	case "max":
		return fmt.Sprintf("%s is above the maximum", e.Field)
	case "oneof":
		return fmt.Sprintf("%s has an unsupported value %v", e.Field, e.Value)
	default:
		return fmt.Sprintf("%s failed validation", e.Field)
	}
}

// ValidationErrors aggregates all validation failures of one config.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, errors.ValidationFailed, "configuration validation failed")
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field: fe.Namespace(),
			Tag:   fe.Tag(),
			Value: fe.Value(),
		})
	}
	return errors.Wrap(out, errors.ValidationFailed, "configuration validation failed")
}
