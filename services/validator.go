package services

import (
	"errors"
	"regexp"
	"strings"

	"github.com/pagecraft/action-service/models"
)

var (
	ErrMissingEmail = errors.New("email is required")
	ErrInvalidEmail = errors.New("email format is invalid")
)

// Deliberately conservative: local@domain.tld, no whitespace. The payment
// gateway does the authoritative check; this only stops obvious typos
// before any network call is made.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateForm checks the snapshot before any order is created. Presence is
// checked before format, so the two failures are mutually exclusive.
func ValidateForm(form models.FormSnapshot) error {
	email := strings.TrimSpace(form["email"])
	if email == "" {
		return ErrMissingEmail
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}
