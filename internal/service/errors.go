package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrItemNotFound       = errors.New("item not found")
	ErrInvalidAmount      = errors.New("item price must be positive")
	ErrInvalidOrigin      = errors.New("invalid request origin")
	ErrOriginNotAllowed   = errors.New("request origin is not allowed")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOwnershipMismatch  = errors.New("session ownership mismatch")
	ErrVerificationFailed = errors.New("order/session verification failed")
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrAdminExists        = errors.New("admin account already exists")
	ErrAdminSetupRequired = errors.New("admin setup code is required for the admin account")
	ErrAuthMisconfigured  = errors.New("auth signing secret is not configured")
)
