package auth

import (
	"errors"
	"fmt"
)

// ErrEmailInUse is returned by sign-up when the address already belongs
// to an account with a different sign-in method.
var ErrEmailInUse = errors.New("User already exists")

// AuthError wraps a failed sign-in, sign-up or sign-out.  Its message is
// the store's message, unchanged.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

// ProfileFetchError reports a profile read that failed for a reason other
// than a missing row.
type ProfileFetchError struct {
	UserID string
	Err    error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("fetch profile %s: %v", e.UserID, e.Err)
}

func (e *ProfileFetchError) Unwrap() error { return e.Err }
