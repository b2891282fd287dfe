package auth

import "errors"

var (
	// ErrLocked is returned when an admin operation runs without an unlocked
	// session or a token for the tenant.
	ErrLocked = errors.New("auth: admin locked")
	// ErrInvalidPIN indicates the PIN did not match the tenant's hash.
	ErrInvalidPIN = errors.New("auth: invalid pin")
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
)
