package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"cold-storage-marketplace/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	cardExpiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	upiIDPattern      = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,256}@[a-zA-Z]{2,64}$`)
)

// Validator wraps go-playground/validator and satisfies echo.Validator.
type Validator struct {
	validate *validator.Validate
}

var (
	defaultValidator *Validator
	validatorOnce    sync.Once
)

// GetValidator returns the shared validator with the custom tags registered.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		v := validator.New()
		// Report JSON field names instead of Go field names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("card_expiry", func(fl validator.FieldLevel) bool {
			return cardExpiryPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("upi_id", func(fl validator.FieldLevel) bool {
			return upiIDPattern.MatchString(fl.Field().String())
		})
		defaultValidator = &Validator{validate: v}
	})
	return defaultValidator
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	if verr := v.Fields(i); verr != nil {
		return verr
	}
	return nil
}

// Fields validates i and returns field-level messages, or nil when i is valid.
func (v *Validator) Fields(i interface{}) *models.ValidationError {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	verr := models.NewValidationError()
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("_", err.Error())
		return verr
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), describe(fe))
	}
	return verr
}

// fieldPath drops the root struct name: "CreateBookingRequest.payment.cvv" -> "payment.cvv".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "numeric":
		return "must contain digits only"
	case "datetime":
		return "must be a date formatted as YYYY-MM-DD"
	case "card_expiry":
		return "must be formatted as MM/YY"
	case "upi_id":
		return "must look like name@bank"
	case "uuid":
		return "must be a valid UUID"
	case "e164":
		return "must be a phone number in international format"
	}
	return "is invalid"
}
