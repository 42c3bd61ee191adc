package snapshot

import (
	"errors"
	"fmt"
)

// Errors returned by owner operations.
var (
	// ErrForeignSnapshot indicates a snapshot was restored on an owner that did not produce it.
	ErrForeignSnapshot = errors.New("foreign snapshot")

	// ErrNilSnapshot indicates a nil snapshot was passed to restore.
	ErrNilSnapshot = errors.New("nil snapshot")

	// ErrNotCloneable indicates the owner's cloner cannot copy the value.
	ErrNotCloneable = errors.New("value cannot be deep-copied")
)

// RestoreError describes a rejected restore.
type RestoreError struct {
	// Owner is the id of the owner the restore was attempted on.
	Owner OwnerID

	// Snapshot is the id of the owner that produced the snapshot.
	Snapshot OwnerID

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore on owner %s from snapshot of %s: %v", e.Owner, e.Snapshot, e.Err)
}

// Unwrap returns the underlying error.
func (e *RestoreError) Unwrap() error {
	return e.Err
}
