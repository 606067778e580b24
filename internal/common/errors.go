// Package common defines shared constants and sentinel errors used across
// the LifeSignal server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic flow control).
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorAccessDenied is returned for any operation attempted against a
	// locked principal outside the unlock protocol.
	ErrorAccessDenied = errors.New("access denied: account is locked")

	// ErrorNotProtected is returned for a heartbeat on a principal with no
	// registered trustees. It is a configuration gap, not a technical failure.
	ErrorNotProtected = errors.New("no trustees registered")

	// ErrorNoCredential is returned for a credential check on a principal that
	// never enrolled one.
	ErrorNoCredential = errors.New("no credential enrolled")

	// ErrorUndecryptable marks ciphertext that cannot be opened (corrupt data
	// or a foreign key). It is never surfaced as raw plaintext.
	ErrorUndecryptable = errors.New("undecryptable content")

	// Trustee registry errors.
	ErrorTrusteeLimit = errors.New("trustee limit reached")
	ErrorAlreadyBound = errors.New("already registered as trustee")
	ErrorSelfTrustee  = errors.New("cannot act as own trustee")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	ErrorValidation = errors.New("validation error")
)
