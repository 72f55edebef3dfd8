package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	timeOfDayRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	pinRegex       = regexp.MustCompile(`^[0-9]{4}$`)
)

const maxActivityNameLength = 100

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a caregiver name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateActivityName checks the display name of an activity
func ValidateActivityName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "activity name is required"}
	}
	if utf8.RuneCountInString(name) > maxActivityNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("activity name must be at most %d characters", maxActivityNameLength)}
	}
	return nil
}

// ValidateTimeOfDay checks a 24-hour HH:MM time
func ValidateTimeOfDay(value string) error {
	if value == "" {
		return ValidationError{Field: "time", Message: "time is required"}
	}
	if !timeOfDayRegex.MatchString(value) {
		return ValidationError{Field: "time", Message: "time must be HH:MM"}
	}
	return nil
}

// ValidatePIN checks a 4-digit child mode PIN
func ValidatePIN(pin string) error {
	if !pinRegex.MatchString(pin) {
		return ValidationError{Field: "pin", Message: "PIN must be 4 digits"}
	}
	return nil
}
