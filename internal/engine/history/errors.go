package history

import "errors"

// Common errors for history operations.
var (
	// ErrEmptyHistory indicates there is nothing to undo.
	ErrEmptyHistory = errors.New("empty history")

	// ErrEmptyRedo indicates there is nothing to redo.
	ErrEmptyRedo = errors.New("empty redo")

	// ErrSnapshotNotFound indicates a checkpoint is no longer reachable.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
