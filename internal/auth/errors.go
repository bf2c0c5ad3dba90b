package auth

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a session and
	// none exists (no stored credentials, or the session was just torn down).
	ErrNotAuthenticated = errors.New("auth: not authenticated")

	// ErrInvalidCredentials is returned when the backend rejects a login.
	// Surfaced to the caller for display; never retried.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// ErrEmailTaken is returned when registration fails because the email
	// is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
)
