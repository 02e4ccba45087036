package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

var serverNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// Launcher files that must exist under wlpHome for a managed server.
var requiredWlpFiles = []string{
	filepath.Join("lib", "bootstrap-agent.jar"),
	filepath.Join("lib", "ws-launch.jar"),
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("servername", func(fl validator.FieldLevel) bool {
			return serverNamePattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks the struct-tag rules and the rules spanning several fields.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if err := structValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs.Add(fieldPath(fe.Namespace()), describe(fe), fe.Value())
		}
	}

	if cfg.Deploy.SharedLib != "" && cfg.Deploy.Type != DeployTypeXML {
		errs.Add("deploy.sharedLib", "can only be used with deploy.type 'xml'", cfg.Deploy.SharedLib)
	}

	switch cfg.Kind {
	case KindLibertyManaged:
		validateWlpHome(cfg.Server.WlpHome, &errs)
	case KindLibertyRemote:
		if cfg.Deploy.Type != DeployTypeDropins {
			errs.Add("deploy.type", "remote Liberty servers only support 'dropins'", cfg.Deploy.Type)
		}
		if cfg.Server.HTTPSPort == 0 {
			errs.Add("server.httpsPort", "is required for the REST connector", cfg.Server.HTTPSPort)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateWlpHome(wlpHome string, errs *ValidationErrors) {
	if strings.TrimSpace(wlpHome) == "" {
		errs.Add("server.wlpHome", "is required for liberty-managed servers")
		return
	}
	info, err := os.Stat(wlpHome)
	if err != nil || !info.IsDir() {
		errs.Add("server.wlpHome", "is not a directory", wlpHome)
		return
	}
	for _, rel := range requiredWlpFiles {
		if _, err := os.Stat(filepath.Join(wlpHome, rel)); err != nil {
			errs.Add("server.wlpHome", fmt.Sprintf("does not contain %s", filepath.ToSlash(rel)), wlpHome)
		}
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "servername":
		return "must start with a letter and contain only letters and digits"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "file":
		return "must name an existing file"
	case "required":
		return "is required"
	}
	return fmt.Sprintf("failed rule '%s'", fe.Tag())
}
