package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"production/pkg/apperror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях используем имена полей JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateRequest проверяет теги validate у сообщения API
func validateRequest(req any) error {
	if rv := reflect.ValueOf(req); req == nil || (rv.Kind() == reflect.Ptr && rv.IsNil()) {
		return apperror.New(apperror.CodeNilInput, "request is nil")
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid request")
	}

	ve := apperror.NewValidationErrors()
	for _, fe := range fieldErrs {
		ve.AddErrorWithField(apperror.CodeInvalidArgument, describeFieldError(fe), fe.Field())
	}
	first := ve.First()
	return apperror.NewWithField(apperror.CodeInvalidArgument, strings.Join(ve.ErrorMessages(), "; "), first.Field).
		WithDetails("violations", ve.ErrorMessages())
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is empty", fe.Field(), strings.ToLower(fe.Param()[:1])+fe.Param()[1:])
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
