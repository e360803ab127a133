package services

import "errors"

var (
	ErrInvalidSecret      = errors.New("invalid secret")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
