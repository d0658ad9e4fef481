package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Regex patterns
var (
	// Letters (any script), whitespace, hyphens and apostrophes (straight or typographic)
	personNameRegex = regexp.MustCompile(`^[\p{L}\s'\x{2019}-]+$`)

	// local@domain.tld; validator's own "email" tag accepts dotless domains
	emailTLDRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// E164-like phone: optional +, digits 7-15 length
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

	countryCodeRegex = regexp.MustCompile(`^\+?[0-9]{1,4}$`)
)

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("person_name", PersonName)
	_ = v.RegisterValidation("email_tld", EmailTLD)
	_ = v.RegisterValidation("valid_phone", ValidPhone)
	_ = v.RegisterValidation("country_code", CountryCode)
}

func newValidator() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// PersonName rejects digits and every symbol except hyphen and apostrophe
func PersonName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return personNameRegex.MatchString(val)
}

func EmailTLD(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return emailTLDRegex.MatchString(val)
}

// ValidPhone validates a phone number structure
func ValidPhone(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return phoneRegex.MatchString(val)
}

func CountryCode(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return countryCodeRegex.MatchString(val)
}
