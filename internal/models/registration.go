package models

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

var reservedUsernames = map[string]bool{
	"admin":  true,
	"root":   true,
	"system": true,
	"api":    true,
}

// ValidationError reports a form field that failed client or server checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Registration is the account creation request.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Validate checks the registration the same way on both ends of the wire.
func (r Registration) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil || strings.ContainsAny(r.Email, "<> ") {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if !usernamePattern.MatchString(r.Username) {
		return &ValidationError{Field: "username", Message: "must be 3-20 characters long and contain only letters, numbers, and underscores"}
	}
	if reservedUsernames[strings.ToLower(r.Username)] {
		return &ValidationError{Field: "username", Message: "this username is reserved"}
	}
	return ValidatePassword(r.Password)
}

// ValidatePassword enforces the password policy for new accounts.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Field: "password", Message: "must be at least 8 characters long"}
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return &ValidationError{Field: "password", Message: "must contain at least one uppercase letter"}
	}
	if !lower {
		return &ValidationError{Field: "password", Message: "must contain at least one lowercase letter"}
	}
	if !digit {
		return &ValidationError{Field: "password", Message: "must contain at least one digit"}
	}
	return nil
}

// ConfirmPassword rejects a confirmation that does not match the password.
func ConfirmPassword(password, confirmation string) error {
	if password != confirmation {
		return &ValidationError{Field: "confirm_password", Message: "passwords do not match"}
	}
	return nil
}

// IsValidationError reports whether err is a form validation failure.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
