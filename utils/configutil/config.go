// Package configutil provides an interface for loading and validating YAML
// configuration.
package configutil

import (
	"fmt"
	"os"

	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ValidationError contains the errors collected while validating a loaded
// configuration.
type ValidationError struct {
	errorMap validator.ErrorMap
}

// ErrorMap returns the errors by offending field.
func (e ValidationError) ErrorMap() validator.ErrorMap { return e.errorMap }

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.errorMap)
}

// Load reads the YAML file at path into config and validates it. An empty
// path leaves config untouched, so zero-value defaults apply.
func Load(path string, config interface{}) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %s", err)
	}
	if err := yaml.Unmarshal(b, config); err != nil {
		return fmt.Errorf("unmarshal config: %s", err)
	}
	if err := validator.Validate(config); err != nil {
		if errs, ok := err.(validator.ErrorMap); ok {
			return ValidationError{errs}
		}
		return err
	}
	return nil
}
