package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced alongside categorized errors so API clients can
// branch without parsing messages.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "AUTH_TOKEN_MALFORMED"
	TextCodeResetForbidden     = "PASSWORD_RESET_FORBIDDEN"
	TextCodeNoCredential       = "NO_CREDENTIAL"
)

// ErrInvalidCredentials is returned for unknown emails, wrong passwords,
// accounts with no usable credential, and inactive accounts. One shape for
// all of them so responses never reveal which accounts exist.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrInvalidToken is returned for malformed, revoked, or otherwise
// unusable refresh tokens.
var ErrInvalidToken = goerrors.New("invalid or revoked token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidToken)

// ErrTokenExpired is returned when a JWT fails validation on its expiry.
var ErrTokenExpired = goerrors.New("authentication token expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned when a JWT cannot be parsed at all.
var ErrTokenMalformed = goerrors.New("malformed authentication token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrResetForbidden collapses every reset precondition failure (bad token,
// confirmation mismatch, reusing the current password) into one generic
// outcome. Per field errors would leak which check tripped.
var ErrResetForbidden = goerrors.New("password reset not allowed", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeResetForbidden)

// ErrActivationFailed is returned when an activation token does not verify
// against the current account state.
var ErrActivationFailed = goerrors.New("account activation failed", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode("ACTIVATION_FAILED")

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD")

// ErrMismatchedHashAndPassword wraps the bcrypt mismatch error.
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)
