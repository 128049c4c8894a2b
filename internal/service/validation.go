package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/linkhub/linkhub/internal/model"
)

// Username validation regex: 3-32 chars, alphanumeric + underscore.
var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

const maxEmailLength = 254

// PasswordPolicy describes the accepted password shape.
type PasswordPolicy struct {
	MinLength     int
	MaxLength     int
	RequireLetter bool
	RequireDigit  bool
}

// DefaultPasswordPolicy accepts 8-128 characters with at least one letter and one digit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		MaxLength:     128,
		RequireLetter: true,
		RequireDigit:  true,
	}
}

// Check returns a message describing the first violated rule, or "".
func (p PasswordPolicy) Check(password string) string {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return "password is required"
	case n < p.MinLength:
		return fmt.Sprintf("password must be at least %d characters", p.MinLength)
	case p.MaxLength > 0 && n > p.MaxLength:
		return fmt.Sprintf("password must be at most %d characters", p.MaxLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if p.RequireLetter && !hasLetter {
		return "password must contain a letter"
	}
	if p.RequireDigit && !hasDigit {
		return "password must contain a digit"
	}
	return ""
}

// NormalizeEmail trims whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks already-normalized input and returns one
// FieldError per violated field, in username, email, password order.
func ValidateRegistration(in RegisterInput, policy PasswordPolicy) []model.FieldError {
	var errs []model.FieldError

	switch {
	case in.Username == "":
		errs = append(errs, model.FieldError{Field: "username", Message: "username is required"})
	case !usernameRegex.MatchString(in.Username):
		errs = append(errs, model.FieldError{Field: "username", Message: "username must be 3-32 letters, digits or underscores"})
	}

	if msg := checkEmail(in.Email); msg != "" {
		errs = append(errs, model.FieldError{Field: "email", Message: msg})
	}

	if msg := policy.Check(in.Password); msg != "" {
		errs = append(errs, model.FieldError{Field: "password", Message: msg})
	}

	return errs
}

func checkEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if len(email) > maxEmailLength {
		return "email is too long"
	}

	// Bare addresses only: no display names, comments or angle brackets.
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "email is not a valid address"
	}

	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "email is not a valid address"
	}
	return ""
}
