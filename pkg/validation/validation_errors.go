package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to the labels applicants see
var FieldLabels = map[string]string{
	"Name":        "Name",
	"Email":       "Email",
	"JobTitle":    "Job title",
	"Number":      "Phone number",
	"CountryCode": "Country code",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, return generic message
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError names the rule that failed so the chat can repeat it back
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)

	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", label, param)

	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", label, param)

	case "email", "email_tld":
		return "Please enter a valid email address, like name@example.com"

	case "person_name":
		return fmt.Sprintf("%s can only contain letters, spaces, hyphens and apostrophes", label)

	case "valid_phone":
		return fmt.Sprintf("%s must be 7 to 15 digits, optionally starting with +", label)

	case "country_code":
		return fmt.Sprintf("%s must be 1 to 4 digits, optionally starting with +", label)

	default:
		return fmt.Sprintf("%s is not valid (%s)", label, e.Tag())
	}
}

func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
