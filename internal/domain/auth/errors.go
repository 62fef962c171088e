package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa is not configured on this server")
	ErrMFANotSetUp        = errors.New("mfa setup has not been started")
	ErrMFANotAllowed      = errors.New("mfa is not available for this role")
	ErrSessionExpired     = errors.New("session expired")
)
