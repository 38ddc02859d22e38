package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrTooManyAttempts    = errors.New("auth: too many failed login attempts, try again later")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)
