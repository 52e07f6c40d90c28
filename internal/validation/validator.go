// Package validation wraps a shared go-playground validator configured for
// request payloads. Field names in messages come from json or form tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vidtube/backend/internal/apierror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the process-wide validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("notblank", notBlank)
		validate = v
	})
	return validate
}

// Struct validates s and returns a 400 *apierror.Error listing every failed field.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierror.Validation("Invalid request").Wrap(err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, translate(fe.Field(), fe))
	}

	message := messages[0]
	if len(messages) > 1 {
		message = "Invalid request"
	}
	return apierror.Validation(message, messages...)
}

// Var validates a single value against tag, naming it field in the message.
func Var(field string, value any, tag string) error {
	err := Validator().Var(value, tag)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apierror.Validation("Invalid " + field).Wrap(err)
	}

	msg := translate(field, fieldErrs[0])
	return apierror.Validation(msg, msg)
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return field.Len() > 0
	default:
		return !field.IsZero()
	}
}

func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"notblank": "%s is required",
	"email":    "%s must be a valid email address",
	"uuid":     "%s must be a valid id",
	"alphanum": "%s must contain only letters and numbers",
}

var messageWithParam = map[string]string{
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

func translate(field string, fe validator.FieldError) string {
	if template, ok := messageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := messageWithParam[fe.Tag()]; ok {
		param := fe.Param()
		if fe.Kind() == reflect.String && (fe.Tag() == "min" || fe.Tag() == "max") {
			param += " characters"
		}
		return fmt.Sprintf(template, field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
