package engine

import "errors"

// Errors returned by session operations.
var (
	// ErrClosed indicates the session was closed.
	ErrClosed = errors.New("session is closed")

	// ErrNilOwner indicates NewWithOwner was given a nil owner.
	ErrNilOwner = errors.New("nil owner")

	// ErrNilMutation indicates a nil mutation function was passed.
	ErrNilMutation = errors.New("nil mutation")
)
