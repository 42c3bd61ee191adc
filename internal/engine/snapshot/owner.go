package snapshot

import (
	"fmt"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"github.com/google/uuid"
)

// Cloner returns an isolated deep copy of v.
type Cloner[T any] func(v T) (T, error)

// DeepCopy is the default Cloner. It handles structs, maps, slices and
// pointers; values holding channels or functions need a custom Cloner.
func DeepCopy[T any](v T) (T, error) {
	return deep.Copy(v)
}

// Owner holds a value and produces and consumes snapshots of it.
//
// Owner methods are safe to call from multiple goroutines, but compound
// operations such as "mutate then capture" must be serialized by the caller.
type Owner[T any] struct {
	mu sync.RWMutex

	id      OwnerID
	value   T
	version uint64
	seq     uint64

	// Configuration
	clone   Cloner[T]
	labeler Labeler
	now     func() time.Time
}

// Option configures an Owner during creation.
type Option[T any] func(*Owner[T])

// WithCloner sets the deep-copy strategy.
func WithCloner[T any](c Cloner[T]) Option[T] {
	return func(o *Owner[T]) {
		if c != nil {
			o.clone = c
		}
	}
}

// WithLabeler sets the label generator.
func WithLabeler[T any](l Labeler) Option[T] {
	return func(o *Owner[T]) {
		if l != nil {
			o.labeler = l
		}
	}
}

// WithClock sets the time source used for snapshot timestamps.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(o *Owner[T]) {
		if now != nil {
			o.now = now
		}
	}
}

// WithID sets the owner identity. Intended for tests and for callers that
// derive ids from their own keyspace.
func WithID[T any](id OwnerID) Option[T] {
	return func(o *Owner[T]) {
		o.id = id
	}
}

// NewOwner creates an owner holding a private copy of initial.
// It fails with ErrNotCloneable if the cloner cannot copy initial.
func NewOwner[T any](initial T, opts ...Option[T]) (*Owner[T], error) {
	o := &Owner[T]{
		id:      uuid.New(),
		clone:   DeepCopy[T],
		labeler: NewSequenceLabeler(DefaultLabelPrefix, nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	v, err := o.tryClone(initial)
	if err != nil {
		return nil, err
	}
	o.value = v
	return o, nil
}

// ID returns the owner's identity.
func (o *Owner[T]) ID() OwnerID {
	return o.id
}

// Version returns the number of changes applied to the owner.
// It increases on every Set, Update and successful restore.
func (o *Owner[T]) Version() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}

// Value returns a deep copy of the current value.
func (o *Owner[T]) Value() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mustClone(o.value)
}

// Set replaces the current value with a copy of v. If v cannot be
// copied the value is left unchanged and ErrNotCloneable is returned.
func (o *Owner[T]) Set(v T) error {
	c, err := o.tryClone(v)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = c
	o.version++
	return nil
}

// Update applies fn to a working copy of the value and installs the result.
// If the result cannot be copied the value is left unchanged and
// ErrNotCloneable is returned. fn must not retain the pointer after it
// returns.
func (o *Owner[T]) Update(fn func(v *T)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.mustClone(o.value)
	fn(&next)
	c, err := o.tryClone(next)
	if err != nil {
		return err
	}
	o.value = c
	o.version++
	return nil
}

// CaptureSnapshot returns an immutable capture of the current value.
func (o *Owner[T]) CaptureSnapshot() *Snapshot[T] {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	return &Snapshot[T]{
		value:     o.mustClone(o.value),
		owner:     o.id,
		seq:       o.seq,
		label:     o.labeler.Label(o.seq),
		timestamp: o.now(),
	}
}

// RestoreFromSnapshot overwrites the current value with the snapshot's.
// The snapshot itself is left untouched and may be restored again.
func (o *Owner[T]) RestoreFromSnapshot(s *Snapshot[T]) error {
	if s == nil {
		return &RestoreError{Owner: o.id, Err: ErrNilSnapshot}
	}
	if s.owner != o.id {
		return &RestoreError{Owner: o.id, Snapshot: s.owner, Err: ErrForeignSnapshot}
	}

	v := o.mustClone(s.value)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	o.version++
	return nil
}

func (o *Owner[T]) tryClone(v T) (T, error) {
	c, err := o.clone(v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrNotCloneable, err)
	}
	return c, nil
}

// mustClone copies a value that has already been copied once. NewOwner,
// Set and Update only ever store values the cloner accepted.
func (o *Owner[T]) mustClone(v T) T {
	c, err := o.clone(v)
	if err != nil {
		panic(fmt.Errorf("snapshot: %w: %v", ErrNotCloneable, err))
	}
	return c
}
