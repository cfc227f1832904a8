package authcore

import "errors"

var (
	// ErrUnauthorized is returned when a bearer token is missing, malformed,
	// expired, or fails signature verification. The categories are
	// deliberately collapsed so callers leak nothing about which check
	// failed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Login for unknown email and wrong
	// password alike (anti-enumeration).
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Register when the normalized email is
	// already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrTokenInvalid is returned by Refresh when the presented refresh
	// token is absent from the store, cryptographically invalid, or expired.
	ErrTokenInvalid = errors.New("invalid refresh token")
	// ErrTokenRevoked is returned by Refresh when the token exists but has
	// been revoked by logout or cascade.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrPermissionDenied is returned when an authenticated identity lacks
	// the role an operation requires.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrIdentityNotFound is returned when a target identity does not exist.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrEmailConflict is returned when an update would collide with another
	// identity's email.
	ErrEmailConflict = errors.New("email already in use")
	// ErrValidation is returned for missing or malformed client input.
	ErrValidation = errors.New("invalid input")
	// ErrEngineNotReady is returned when the engine was not fully
	// constructed through the builder.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInternal wraps unexpected store or crypto failures. Handlers should
	// map it to a generic 500; the joined detail is for server-side logs
	// only.
	ErrInternal = errors.New("internal failure")
)
