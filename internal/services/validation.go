package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/badoux/checkmail"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	lowerPattern    = regexp.MustCompile(`[a-z]`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	digitPattern    = regexp.MustCompile(`[0-9]`)
	specialPattern  = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

	// "City, Country"
	strictLocationPattern = regexp.MustCompile(`^[\p{L}\p{M} .'\-]{2,}, [\p{L}\p{M} .'\-]{2,}$`)
)

var weakPasswords = map[string]bool{
	"password":   true,
	"12345678":   true,
	"qwerty123":  true,
	"admin123":   true,
	"welcome123": true,
}

// FieldErrors collects one message per form field.
type FieldErrors map[string]string

func (f FieldErrors) Add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f FieldErrors) Empty() bool { return len(f) == 0 }

// validateUsername checks shape only; uniqueness needs the database.
func validateUsername(username string) string {
	n := utf8.RuneCountInString(username)
	switch {
	case username == "":
		return "Username is required."
	case n < 3:
		return "Username must be at least 3 characters long."
	case n > 30:
		return "Username cannot exceed 30 characters."
	case !usernamePattern.MatchString(username):
		return "Username can only contain letters, numbers, and underscores."
	}
	return ""
}

func validateEmail(email string) string {
	if email == "" {
		return "Email is required."
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return "Please enter a valid email address."
	}
	return ""
}

// validatePassword applies the length, character class and denylist rules.
func validatePassword(password string) string {
	n := utf8.RuneCountInString(password)
	switch {
	case password == "":
		return "Password is required."
	case n < 8:
		return "Password must be at least 8 characters long."
	case n > 128:
		return "Password cannot exceed 128 characters."
	}

	if weakPasswords[strings.ToLower(password)] {
		return "This password is too common. Please choose a stronger password."
	}

	var missing []string
	if !lowerPattern.MatchString(password) {
		missing = append(missing, "lowercase letter")
	}
	if !upperPattern.MatchString(password) {
		missing = append(missing, "uppercase letter")
	}
	if !digitPattern.MatchString(password) {
		missing = append(missing, "number")
	}
	if !specialPattern.MatchString(password) {
		missing = append(missing, "special character")
	}
	switch len(missing) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Password must contain at least one %s.", missing[0])
	default:
		return fmt.Sprintf("Password must contain at least one: %s.", strings.Join(missing, ", "))
	}
}

// validateLength checks the trimmed rune length of a required text field.
func validateLength(value, label string, min, max int, minSuffix string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		return label + " is required."
	case n < min:
		return fmt.Sprintf("%s must be at least %d characters long%s.", label, min, minSuffix)
	case max > 0 && n > max:
		return fmt.Sprintf("%s cannot exceed %d characters.", label, max)
	}
	return ""
}

func validateLocation(location string, strict bool) string {
	if msg := validateLength(location, "Location", 3, 100, ""); msg != "" {
		return msg
	}
	if strict && !strictLocationPattern.MatchString(strings.TrimSpace(location)) {
		return `Location must be in the format "City, Country".`
	}
	return ""
}
