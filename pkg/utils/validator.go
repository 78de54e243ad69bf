package utils

import (
	"fmt"
	"regexp"
	"slices"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateOneOf checks that value is one of allowed
func ValidateOneOf(field, value string, allowed ...string) error {
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

// SanitizeString removes control characters other than tab and newlines
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
