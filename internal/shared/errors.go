package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates an authentication failure. Every
	// auth-shaped miss collapses into this sentinel at the use-case boundary
	// so callers cannot distinguish absence from a bad secret or token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists occurs when a signup email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrMalformedInput occurs when a request misses a required field for
	// the chosen auth kind.
	ErrMalformedInput = errors.New("malformed input")
	// ErrWeakPassword occurs when a signup secret fails the strength policy.
	ErrWeakPassword = errors.New("password does not meet strength policy")
	// ErrTokenExpired indicates a token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed indicates a token that could not be parsed.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrBadSignature indicates a token whose signature does not verify.
	ErrBadSignature = errors.New("token signature invalid")
)
