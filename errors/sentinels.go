package errors

import "errors"

// Sentinel errors shared between stores and services. Stores return these so
// the core can distinguish "missing" from genuine store failures.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrTokenExpiredOrRevoked = errors.New("token expired or revoked")
)
