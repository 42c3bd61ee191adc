// Package snapshot provides the state owner and its opaque snapshots.
//
// An Owner holds a value of any type and is the only component that can
// produce or consume a Snapshot of that value. Snapshots are immutable:
// the captured value is deep-copied on capture and again on restore, so
// later mutation of the owner can never reach back into history.
//
//	owner, err := snapshot.NewOwner(Document{Title: "draft"})
//	snap := owner.CaptureSnapshot()
//	owner.Update(func(d *Document) { d.Title = "final" })
//	_ = owner.RestoreFromSnapshot(snap) // Title is "draft" again
//
// # Identity
//
// Every owner carries a random OwnerID. A snapshot remembers the id of the
// owner that produced it and restoring it anywhere else fails with
// ErrForeignSnapshot.
//
// # Labels
//
// Labels are generated from the capture sequence number and an injectable
// random source. They never include any part of the captured value.
package snapshot
