package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Memory errors
	ErrMemoryNotFound = errors.New("memory not found")

	// Admission errors
	ErrBanned        = errors.New("identity is banned")
	ErrQuotaExceeded = errors.New("submission quota exceeded")
	ErrInvalidInput  = errors.New("invalid input")

	// Auth errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")

	// Store errors
	ErrBothStoresFailed = errors.New("both stores failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)
