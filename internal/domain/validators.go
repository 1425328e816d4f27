package domain

import (
	"fmt"
	"regexp"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// "base64(salt):base64(key)" as produced by the credential hasher and
	// required of pre-hashed client input. Both segments standard base64.
	storedHashRegex = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}:[A-Za-z0-9+/]+={0,2}$`)
)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateUsername checks the username is present and within column bounds.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) > 120 {
		return fmt.Errorf("username must be at most 120 characters")
	}
	return nil
}

// ValidStoredHash reports whether s looks like "saltBase64:keyBase64".
func ValidStoredHash(s string) bool {
	return storedHashRegex.MatchString(s)
}

// GuardResult is the outcome of a guard evaluation (rate limiter, circuit
// breaker).
type GuardResult struct {
	Allowed bool
	Reason  string
	Guard   string
}
