// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication (bad username/password).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates a request that failed validation.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Token and session failures, resolved at the access gate.
var (
	// ErrCredentialMissing: no Authorization header was presented.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrCredentialMalformed: the Authorization header has no token segment.
	ErrCredentialMalformed = errors.New("credential malformed")

	// ErrSignatureInvalid means the token signature did not verify. With a
	// well-formed token this points at a signing key mismatch between deployments.
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrTokenMalformed: the token structure or claims could not be parsed.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrSessionNotFound: no login record matches the token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired: the login record is older than the absolute lifetime.
	ErrSessionExpired = errors.New("session expired")

	// ErrDependencyUnavailable is the catch-all for store and infrastructure failures.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Pagination failures, resolved by the cursor manager's callers.
var (
	// ErrCursorAmbiguous: both next and back cursors were supplied.
	ErrCursorAmbiguous = errors.New("cursor ambiguous: supply next_page or back_page, not both")

	// ErrCursorOutOfRange: the requested page is outside [1, total_pages].
	ErrCursorOutOfRange = errors.New("cursor out of range")
)
