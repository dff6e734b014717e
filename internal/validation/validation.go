// Package validation provides the pure field validators for household
// records. Validators are stateless predicates; cross-entity rules live
// in the service layer.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors aggregates one or more validation failures so callers can show
// every offending field at once.
type Errors struct {
	Violations []string
}

func (e *Errors) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Add appends a violation message.
func (e *Errors) Add(msg string) {
	e.Violations = append(e.Violations, msg)
}

// Err returns the aggregate as an error, or nil when empty.
func (e *Errors) Err() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// ValidateFamilyName checks a family display name: 2-50 characters
// after trimming whitespace.
func ValidateFamilyName(name string) error {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return ValidationError{Field: "family name", Message: "must be at least 2 characters"}
	}
	if len([]rune(name)) > 50 {
		return ValidationError{Field: "family name", Message: "must be at most 50 characters"}
	}
	return nil
}

// ValidateFamilyCode checks a join code: 6-8 characters after trimming,
// letters and digits only. Codes are case-sensitive; uniqueness is
// checked separately against the store.
func ValidateFamilyCode(code string) error {
	code = strings.TrimSpace(code)
	runes := []rune(code)
	if len(runes) < 6 {
		return ValidationError{Field: "family code", Message: "must be at least 6 characters"}
	}
	if len(runes) > 8 {
		return ValidationError{Field: "family code", Message: "must be at most 8 characters"}
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ValidationError{Field: "family code", Message: "must contain only letters and digits"}
		}
	}
	return nil
}

// ValidateDisplayName checks a profile display name: 1-50 characters
// after trimming. Any printable characters are accepted.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 1 {
		return ValidationError{Field: "display name", Message: "is required"}
	}
	if len([]rune(name)) > 50 {
		return ValidationError{Field: "display name", Message: "must be at most 50 characters"}
	}
	return nil
}

// ValidateEmail checks if an email address is valid.
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

// ValidateIdentityHash checks the opaque platform identity hash: at
// least 10 characters after trimming, any content accepted.
func ValidateIdentityHash(hash string) error {
	hash = strings.TrimSpace(hash)
	if len([]rune(hash)) < 10 {
		return ValidationError{Field: "identity hash", Message: "must be at least 10 characters"}
	}
	return nil
}
