package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	UsernameMinLength = 2
	UsernameMaxLength = 20
	RoomNameMaxLength = 20
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Struct when validation fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	return v[0].Message
}

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		if name == "-" {
			return ""
		}

		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("roomname", func(fl validator.FieldLevel) bool {
		return ValidRoomName(fl.Field().String())
	})

	return &Validator{validate: v}
}

// ValidUsername accepts 2 to 20 characters once surrounding space is trimmed.
func ValidUsername(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= UsernameMinLength && n <= UsernameMaxLength
}

// ValidRoomName accepts 1 to 20 characters with no whitespace.
func ValidRoomName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > RoomNameMaxLength {
		return false
	}
	return strings.IndexFunc(name, unicode.IsSpace) < 0
}

func (v *Validator) Validate(i any) ([]ValidationError, bool) {
	err := v.validate.Struct(i)
	if err == nil {
		return nil, true
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ValidationError{{Code: "INVALID", Message: err.Error()}}, false
	}

	errs := make([]ValidationError, 0, len(validationErrors))
	for _, err := range validationErrors {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must not exceed %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
		case "url":
			message = fmt.Sprintf("%s must be a valid url", err.Field())
		case "username":
			message = fmt.Sprintf("%s must be %d-%d characters", err.Field(), UsernameMinLength, UsernameMaxLength)
		case "roomname":
			message = fmt.Sprintf("%s must be 1-%d characters without spaces", err.Field(), RoomNameMaxLength)
		default:
			message = fmt.Sprintf("%s is invalid", err.Field())
		}

		errs = append(errs, ValidationError{
			Field:   err.Field(),
			Code:    strings.ToUpper(err.Tag()),
			Message: message,
		})
	}

	return errs, false
}

// Struct validates i and returns ValidationErrors on failure.
func (v *Validator) Struct(i any) error {
	if errs, ok := v.Validate(i); !ok {
		return ValidationErrors(errs)
	}
	return nil
}
