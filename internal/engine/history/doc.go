// Package history provides undo/redo over snapshots of a state owner.
//
// A Manager is bound to exactly one owner for its lifetime. It never looks
// inside a snapshot; it only asks the owner to capture one or to restore
// one. Key concepts:
//
// # Baseline
//
// On creation the manager captures the owner's current state as the
// baseline, identified by Origin. Undoing every captured entry returns the
// owner to the baseline.
//
// # Undo Stack
//
// Capture pushes a fresh snapshot with a new, monotonically increasing
// SnapshotID. The top of the undo stack is the active state. Undo pops the
// top and restores the entry beneath it (or the baseline):
//
//	h := history.New[string](owner)
//	owner.Set("B"); h.Capture("")  // id 1
//	owner.Set("C"); h.Capture("")  // id 2
//	h.Undo()                       // owner holds "B", returns 1
//	h.Undo()                       // owner holds the baseline, returns Origin
//	h.Undo()                       // ErrEmptyHistory
//
// # Redo Stack
//
// Undo records the owner's pre-undo state on the redo stack so nothing
// done since the last capture is lost. Redo moves it back. Any Capture
// clears the redo stack.
//
// # Capacity
//
// With a capacity bound K the undo stack never holds more than K entries;
// the oldest are evicted first and become unreachable. Eviction is not an
// error.
//
// # Hooks
//
// OnCapture, OnUndo, OnRedo and OnEvict register callbacks that run
// synchronously, in registration order, after the operation succeeded.
// Callback errors and panics are logged and never affect history state.
package history
