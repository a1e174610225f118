package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest password accepted on sign-up.
const MinPasswordLen = 6

// ErrWeakPassword is returned by CheckPassword for passwords that are too short.
var ErrWeakPassword = errors.New("Password should be at least 6 characters.")

// CheckPassword validates a sign-up password before hashing.
func CheckPassword(plain string) error {
	if len(plain) < MinPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
