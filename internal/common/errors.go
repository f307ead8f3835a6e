// Package common defines shared constants and sentinel errors used across
// client and server layers of gophaccount. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Account errors.
	ErrUserNotFound              = errors.New("user not found")
	ErrAccountInactive           = errors.New("account inactive")
	ErrEmailInUse                = errors.New("email already in use")
	ErrSelfDeactivationForbidden = errors.New("self deactivation forbidden")
	ErrInvalidPhone              = errors.New("invalid phone number")
	ErrValidation                = errors.New("validation error")
	ErrSocialLoginDisabled       = errors.New("social login disabled")

	// Password errors.
	ErrPasswordRequirementsNotMet = errors.New("password requirements not met")
	ErrPasswordsDoNotMatch        = errors.New("passwords do not match")
	ErrOldPasswordIncorrect       = errors.New("old password incorrect")

	// Avatar upload errors.
	ErrFileNull        = errors.New("file is empty")
	ErrFileInvalidSize = errors.New("file size exceeds limit")
	ErrFileInvalidType = errors.New("file type not allowed")

	// Token codec errors.
	ErrMalformedToken    = errors.New("malformed token")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrAlgorithmMismatch = errors.New("token algorithm mismatch")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrTokenExpired      = errors.New("token expired")
)
