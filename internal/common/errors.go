// Package common defines shared constants and sentinel errors used across
// the ledger, lifecycle and transport layers of chainkeeper. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Lookup errors. A missing account and a wrong password are both
	// reported as ErrorNotFound.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrConfiguration is returned by every lifecycle operation until the
	// master identity address and secret are configured.
	ErrConfiguration = errors.New("master identity is not configured")

	// Record decoding errors, recovered locally during directory scans.
	ErrDecode        = errors.New("record decode failed")
	ErrForeignRecord = errors.New("record does not belong to the account schema")

	// Ledger read/broadcast failures.
	ErrLedger = errors.New("ledger error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
