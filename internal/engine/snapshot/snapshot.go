package snapshot

import (
	"time"

	"github.com/google/uuid"
)

// OwnerID identifies the owner a snapshot belongs to.
type OwnerID = uuid.UUID

// Snapshot is an immutable capture of an owner's value.
// The captured value is only reachable through the owner that produced it.
type Snapshot[T any] struct {
	value     T
	owner     OwnerID
	seq       uint64
	label     string
	timestamp time.Time
}

// OwnerID returns the id of the owner that produced the snapshot.
func (s *Snapshot[T]) OwnerID() OwnerID {
	return s.owner
}

// Seq returns the owner-local capture sequence number, starting at 1.
func (s *Snapshot[T]) Seq() uint64 {
	return s.seq
}

// Label returns the generated label.
func (s *Snapshot[T]) Label() string {
	return s.label
}

// Timestamp returns when the snapshot was taken.
func (s *Snapshot[T]) Timestamp() time.Time {
	return s.timestamp
}
