// Package services defines the business logic for accounts and short links.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are internal to the service layer; translation into transport
// status codes and response envelopes happens in one place, the respond
// package, so no handler invents its own mapping.
package services

import (
	"errors"
	"fmt"
)

// Account-related errors.
var (
	// ErrInvalidCredentials is returned when a login attempt presents an
	// unknown email or a wrong password. The two cases are deliberately
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registering with an email that already
	// belongs to an account.
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrUserNotFound indicates that the requested account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Link-related errors.
var (
	// ErrLinkNotFound indicates that no short link exists for the given code.
	ErrLinkNotFound = errors.New("short URL not found")

	// ErrCodeExhausted is returned when code generation gave up after the
	// bounded number of attempts. It is reportable and non-fatal: the
	// service stays up and the caller may simply retry.
	ErrCodeExhausted = errors.New("could not allocate a unique short code")

	// ErrAuthRequired is returned by operations that need an attached
	// identity when the request carries none.
	ErrAuthRequired = errors.New("authentication required")
)

// ValidationError marks malformed input (bad URL, short password, …).
// It wraps a human-readable message safe to return to clients.
type ValidationError struct {
	Msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
