// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var barcodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,64}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("barcode", validateBarcode)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Printed barcodes are 4-64 characters of letters, digits and dashes.
func validateBarcode(fl validator.FieldLevel) bool {
	return barcodePattern.MatchString(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must have at least " + e.Param() + " entries or characters"
	case "max":
		return e.Field() + " must have at most " + e.Param() + " entries or characters"
	case "gt":
		return e.Field() + " must be a positive integer"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "barcode":
		return "Barcode must be 4-64 characters of letters, digits and dashes"
	default:
		return e.Field() + " is invalid"
	}
}
