package history

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	id SnapshotID
}

// ID returns the entry the checkpoint refers to.
func (c Checkpoint) ID() SnapshotID {
	return c.id
}

// CreateCheckpoint creates a checkpoint at the active entry.
func (h *Manager[T]) CreateCheckpoint() Checkpoint {
	return Checkpoint{id: h.Active().ID}
}

// UndoToCheckpoint undoes until the checkpoint's entry is active.
// Each step takes the manager lock separately, so no other goroutine may
// capture, undo or redo while it runs.
// It fails with ErrSnapshotNotFound, without undoing anything, if the entry
// is no longer on the undo stack.
func (h *Manager[T]) UndoToCheckpoint(cp Checkpoint) error {
	if !h.onUndoStack(cp.id) {
		return ErrSnapshotNotFound
	}
	for h.Active().ID != cp.id {
		if _, err := h.Undo(); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes until the checkpoint's entry is active.
// Like UndoToCheckpoint it requires a single writer.
// It fails with ErrSnapshotNotFound, without redoing anything, if the entry
// is neither active nor on the redo stack.
func (h *Manager[T]) RedoToCheckpoint(cp Checkpoint) error {
	if h.Active().ID == cp.id {
		return nil
	}
	if !h.onRedoStack(cp.id) {
		return ErrSnapshotNotFound
	}
	for h.Active().ID != cp.id {
		if _, err := h.Redo(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Manager[T]) onUndoStack(id SnapshotID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id == Origin {
		return true
	}
	for _, e := range h.undoStack {
		if e.id == id {
			return true
		}
	}
	return false
}

func (h *Manager[T]) onRedoStack(id SnapshotID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.redoStack {
		if e.id == id {
			return true
		}
	}
	return false
}
