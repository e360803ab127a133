package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen also bounds bulk-operation secrets, which are the
// caller's own password.
const MinPasswordLen = 8

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password longer than 72 bytes")
)

// CheckPassword enforces the length bounds bcrypt can honour.
func CheckPassword(p string) error {
	switch {
	case len(p) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(p) > 72:
		return ErrPasswordTooLong
	}
	return nil
}

func HashPassword(p string) (string, error) {
	if err := CheckPassword(p); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

// VerifyPassword returns nil when plain matches hash. An empty hash never
// matches.
func VerifyPassword(plain, hash string) error {
	if hash == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
