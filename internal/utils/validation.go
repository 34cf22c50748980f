package utils

import (
	"strings"
	"unicode"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

const MinPasswordLength = 8

var commonPasswords = map[string]bool{
	"password":   true,
	"password1":  true,
	"12345678":   true,
	"123456789":  true,
	"qwertyuiop": true,
	"iloveyou":   true,
	"sunshine":   true,
	"abc12345":   true,
	"changeme":   true,
	"letmein1":   true,
	"welcome1":   true,
	"football":   true,
}

// ValidatePassword applies the password strength rules and reports the first violated
// one as a field error on field. Attributes such as the username or email local part may
// not appear in the password.
func ValidatePassword(field, password string, attributes ...string) error {
	if len([]rune(password)) < MinPasswordLength {
		return domain.NewFieldError(field, "password must contain at least 8 characters")
	}

	allDigits := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		return domain.NewFieldError(field, "password must not be entirely numeric")
	}

	lower := strings.ToLower(password)
	if commonPasswords[lower] {
		return domain.NewFieldError(field, "password is too common")
	}

	for _, attr := range attributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if len(attr) >= 3 && strings.Contains(lower, attr) {
			return domain.NewFieldError(field, "password is too similar to your personal information")
		}
	}

	return nil
}

// ValidateProjectDates enforces start date <= end date.
func ValidateProjectDates(start, end domain.Date) error {
	if start.After(end.Time) {
		return domain.NewFieldError("endDate", "end date must not be before start date")
	}
	return nil
}

// EmailLocalPart returns the part of an address before the @.
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
