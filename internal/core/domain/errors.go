package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these so
// the transport layer can classify it with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Credential and session errors.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrTokenExpired       = fmt.Errorf("%w: session expired", ErrUnauthenticated)
	ErrTokenInvalid       = fmt.Errorf("%w: access denied", ErrUnauthenticated)
)

// User and second-factor errors.
var (
	ErrUserNotFound            = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserExists              = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrPasswordTooShort        = fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	ErrTwoFactorAlreadyEnabled = fmt.Errorf("%w: two-factor authentication is already enabled", ErrValidation)
	ErrNoPendingEnrollment     = fmt.Errorf("%w: no pending two-factor enrollment", ErrValidation)
	ErrInvalidTOTPCode         = fmt.Errorf("%w: invalid verification code", ErrValidation)
)

// API key errors.
var (
	ErrAPIKeyNotFound     = fmt.Errorf("%w: api key not found", ErrUnauthenticated)
	ErrAPIKeyRevoked      = fmt.Errorf("%w: api key revoked", ErrUnauthenticated)
	ErrAPIKeyExpired      = fmt.Errorf("%w: api key expired", ErrUnauthenticated)
	ErrAPIKeyNameRequired = fmt.Errorf("%w: api key name is required", ErrValidation)
	ErrUnknownPermission  = fmt.Errorf("%w: unknown permission", ErrValidation)
	ErrInvalidExpiry      = fmt.Errorf("%w: expiresInDays must be positive", ErrValidation)
	ErrAPIKeyMissing      = fmt.Errorf("%w: api key record not found", ErrNotFound)
	ErrInsufficientScope  = fmt.Errorf("%w: api key lacks required permission", ErrForbidden)
)

// Diagram errors.
var (
	ErrDiagramNotFound    = fmt.Errorf("%w: diagram not found", ErrNotFound)
	ErrDiagramTitle       = fmt.Errorf("%w: title is required and must be at most %d characters", ErrValidation, MaxDiagramTitleLength)
	ErrDiagramContentJSON = fmt.Errorf("%w: content must be valid JSON", ErrValidation)
)

// Validationf builds an ad-hoc validation error with a client-safe message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
