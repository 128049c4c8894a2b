package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/linkhub/linkhub/internal/auth"
	"github.com/linkhub/linkhub/internal/model"
)

// Service errors. Handlers map these to HTTP responses with errors.Is/As.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInternal           = errors.New("internal error")

	ErrInvalidToken = auth.ErrInvalidToken
	ErrExpiredToken = auth.ErrExpiredToken
)

// Error codes attached to internal failures via oops.
const (
	codeRegisterFailed = "AUTH_REGISTER_FAILED"
	codeLoginFailed    = "AUTH_LOGIN_FAILED"
	codeProfileFailed  = "AUTH_PROFILE_FAILED"
)

// ValidationError lists every rejected registration field.
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DuplicateUserError names the field that collided: "username" or "email".
type DuplicateUserError struct {
	Field string
}

func (e *DuplicateUserError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

// Is makes errors.Is(err, ErrDuplicateUser) true.
func (e *DuplicateUserError) Is(target error) bool {
	return target == ErrDuplicateUser
}

// internalError wraps cause so that errors.Is(err, ErrInternal) holds while
// the cause and operation stay available for logging.
func internalError(code, operation string, cause error) error {
	return oops.Code(code).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrInternal, cause))
}

// ErrorCode returns the oops code attached to err, or "".
func ErrorCode(err error) string {
	if o, ok := oops.AsOops(err); ok {
		if code, ok := o.Code().(string); ok {
			return code
		}
	}
	return ""
}
