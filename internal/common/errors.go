// Package common defines shared constants and sentinel errors used across
// the service core, the persistence layer and both transports. Callers should
// use errors.Is to match these values and KindOf to classify an arbitrary
// error.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("invalid input")
	ErrorRateLimited  = errors.New("rate limit exceeded")

	// Credential errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Kind is a stable, transport-agnostic error classification usable for
// client branching.
type Kind string

const (
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindExpiredCredential Kind = "EXPIRED_CREDENTIAL"
	KindInvalidCredential Kind = "INVALID_CREDENTIAL"
	KindInternal          Kind = "INTERNAL"
)

// kinds is ordered: an Unauthorized error wrapping ErrTokenExpired is
// reported as Unauthorized.
var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrorValidation, KindInvalidInput},
	{ErrorUnauthorized, KindUnauthorized},
	{ErrorForbidden, KindForbidden},
	{ErrorNotFound, KindNotFound},
	{ErrorConflict, KindConflict},
	{ErrorRateLimited, KindRateLimited},
	{ErrTokenExpired, KindExpiredCredential},
	{ErrInvalidToken, KindInvalidCredential},
}

// KindOf classifies err. Anything not wrapping one of the sentinels above,
// including ErrorInternal, is KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
