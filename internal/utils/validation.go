package contextutils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// PasswordRuleMessage is shown when a signup password fails PasswordIsStrong.
const PasswordRuleMessage = "Password must contain at least 8 characters, one uppercase letter, one lowercase letter, and one number"

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// EmailInDomain reports whether email ends with the given domain suffix, e.g. "@adventz.com".
// An empty domain accepts any address.
func EmailInDomain(email, domain string) bool {
	if domain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), strings.ToLower(domain))
}

// IsValidPhone checks for exactly ten digits
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// PasswordIsStrong requires at least 8 characters with upper, lower and digit classes
func PasswordIsStrong(password string) bool {
	if validate.Var(password, "min=8") != nil {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// IsBlank reports whether s is empty after trimming whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
