package store

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password.  The message is shown to users as is.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	// ErrEmailNotConfirmed is returned when the account has not been
	// confirmed yet and confirmation is required.
	ErrEmailNotConfirmed = errors.New("Email not confirmed")
	// ErrInvalidEmail is returned by SignUp for a malformed address.
	ErrInvalidEmail = errors.New("Unable to validate email address: invalid format")
	// ErrNoRows is returned by single-row reads that matched nothing.
	ErrNoRows = errors.New("no rows returned")
	// ErrNotSignedIn is returned by writes that need a session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrForbidden is returned when a row belongs to another user.
	ErrForbidden = errors.New("row belongs to another user")
	// ErrSessionExpired is returned when the refresh token is no longer valid.
	ErrSessionExpired = errors.New("session expired")
)
