package validation

import (
	"strings"
	"unicode/utf8"
)

// JobTitleCreateNew is the selector value that asks for a new job title
// instead of picking one. It is never an accepted answer.
const JobTitleCreateNew = "create-new"

const MaxFreeFormJobTitleLength = 100

// Result is the outcome of a single field check. Expected-invalid input is
// reported here, never as an error.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func valid() Result {
	return Result{Valid: true}
}

func invalid(message string) Result {
	return Result{Valid: false, Message: message}
}

var validate = newValidator()

type nameInput struct {
	Name string `validate:"required,min=2,max=50,person_name"`
}

type emailInput struct {
	Email string `validate:"required,max=254,email_tld,email"`
}

type phoneInput struct {
	Number      string `validate:"required,valid_phone"`
	CountryCode string `validate:"required,country_code"`
}

// ValidateName checks an applicant's full name after trimming surrounding space.
func ValidateName(name string) Result {
	return check(nameInput{Name: strings.TrimSpace(name)})
}

// ValidateEmail checks the local@domain.tld shape and the 254 character limit.
func ValidateEmail(email string) Result {
	return check(emailInput{Email: strings.TrimSpace(email)})
}

// ValidatePhone checks an optional contact number together with its country code.
func ValidatePhone(number, countryCode string) Result {
	return check(phoneInput{
		Number:      strings.TrimSpace(number),
		CountryCode: strings.TrimSpace(countryCode),
	})
}

// ValidateJobTitle accepts a member of allowed, or any short non-empty title
// when freeForm is set because the allowed set could not be loaded.
func ValidateJobTitle(title string, allowed []string, freeForm bool) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("Please choose a job title")
	}
	if title == JobTitleCreateNew {
		return invalid("Please choose an existing job title")
	}

	for _, option := range allowed {
		if strings.EqualFold(option, title) {
			return valid()
		}
	}

	if freeForm {
		if utf8.RuneCountInString(title) > MaxFreeFormJobTitleLength {
			return invalid("Job title must be at most 100 characters long")
		}
		return valid()
	}
	return invalid("Please choose one of the listed job titles")
}

func check(input interface{}) Result {
	if err := validate.Struct(input); err != nil {
		messages := FormatValidationErrors(err)
		return invalid(messages[0])
	}
	return valid()
}
