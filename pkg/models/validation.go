package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldNames maps struct fields to the labels shown to visitors
var fieldNames = map[string]string{
	"Name":        "name",
	"Email":       "email",
	"Company":     "company",
	"Phone":       "phone",
	"Country":     "country",
	"Industry":    "industry",
	"CompanySize": "company size",
	"Message":     "message",
	"UsageType":   "usage type",
}

// ValidationError aggregates every failing field of a form into one message
type ValidationError struct {
	Fields   map[string]string
	messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.messages, "; ")
}

// Validate checks the form before anything is sent anywhere
func (f *ContactForm) Validate() error {
	trimmed := *f
	trimmed.Name = strings.TrimSpace(f.Name)
	trimmed.Email = strings.TrimSpace(f.Email)
	trimmed.Message = strings.TrimSpace(f.Message)
	trimmed.UsageType = strings.TrimSpace(f.UsageType)

	err := validate.Struct(&trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("error validating form: %w", err)
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		label, ok := fieldNames[fe.Field()]
		if !ok {
			label = strings.ToLower(fe.Field())
		}
		msg := describe(label, fe)
		verr.Fields[label] = msg
		verr.messages = append(verr.messages, msg)
	}
	return verr
}

func describe(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
