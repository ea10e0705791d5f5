package service

import "errors"

// Service-level sentinels. Handlers map these to HTTP status codes; the
// wording is intentionally uniform where a more specific message would act
// as an account-enumeration oracle.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailExists        = errors.New("email_exists")
	ErrUsernameExists     = errors.New("username_exists")
	ErrNotVerified        = errors.New("email_not_verified")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrResetTokenInvalid  = errors.New("invalid_reset_token")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrClientNotFound     = errors.New("client_not_found")
)
