package history

import (
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/rewind/internal/event"
)

// Manager manages undo/redo state for one owner.
//
// Manager methods are individually serialized, but the manager does not
// guard the owner: the caller must not mutate the owner while Capture,
// Undo or Redo is in progress. Compound operations such as
// UndoToCheckpoint assume a single writer.
type Manager[T any] struct {
	mu sync.Mutex

	owner    Originator[T]
	baseline *entry[T]

	undoStack []*entry[T]
	redoStack []*entry[T]
	lastID    SnapshotID

	// Configuration
	capacity int

	hooks  *event.Registry[Info]
	logger *zap.Logger

	// Deferred delivery
	deferred  bool
	pendingMu sync.Mutex
	pending   []event.Event[Info]
	deliverMu sync.Mutex
}

// New creates a manager bound to owner and captures the owner's current
// state as the baseline.
func New[T any](owner Originator[T], opts ...Option) *Manager[T] {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Manager[T]{
		owner:    owner,
		capacity: cfg.capacity,
		logger:   cfg.logger,
		deferred: cfg.deferred,
	}
	h.hooks = event.NewRegistry[Info](event.WithErrorHandler(h.hookFailed))
	h.baseline = h.newBaseline()
	return h
}

func (h *Manager[T]) newBaseline() *entry[T] {
	return &entry[T]{
		id:    Origin,
		label: OriginLabel,
		snap:  h.owner.CaptureSnapshot(),
	}
}

// Capture snapshots the owner and pushes it onto the undo stack.
// An empty label uses the snapshot's generated label. The redo stack is
// cleared and the oldest entries are evicted if the capacity is exceeded.
func (h *Manager[T]) Capture(label string) SnapshotID {
	h.mu.Lock()

	snap := h.owner.CaptureSnapshot()
	if label == "" {
		label = snap.Label()
	}

	h.lastID++
	e := &entry[T]{id: h.lastID, label: label, snap: snap}
	h.undoStack = append(h.undoStack, e)

	// A fresh capture invalidates the undone future
	h.redoStack = nil

	evicted := h.enforceCapacityLocked()
	h.mu.Unlock()

	h.emit(event.KindCapture, e.info())
	h.emitEvicted(evicted)
	return e.id
}

// Undo restores the state preceding the active entry and returns the id of
// the entry that is now active (Origin for the baseline).
// If the owner rejects the restore, the stacks are left unchanged and the
// owner's error is returned.
func (h *Manager[T]) Undo() (SnapshotID, error) {
	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return Origin, ErrEmptyHistory
	}

	pre := h.owner.CaptureSnapshot()

	top := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	target := h.activeLocked()

	if err := h.owner.RestoreFromSnapshot(target.snap); err != nil {
		// Restore entry on failure
		h.undoStack = append(h.undoStack, top)
		h.mu.Unlock()
		return Origin, err
	}

	h.redoStack = append(h.redoStack, &entry[T]{
		id:    top.id,
		label: top.label,
		snap:  pre,
	})
	info := target.info()
	h.mu.Unlock()

	h.emit(event.KindUndo, info)
	return info.ID, nil
}

// Redo re-applies the most recently undone entry and returns its id.
// If the owner rejects the restore, the stacks are left unchanged and the
// owner's error is returned.
func (h *Manager[T]) Redo() (SnapshotID, error) {
	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return Origin, ErrEmptyRedo
	}

	e := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]

	if err := h.owner.RestoreFromSnapshot(e.snap); err != nil {
		// Restore entry on failure
		h.redoStack = append(h.redoStack, e)
		h.mu.Unlock()
		return Origin, err
	}

	h.undoStack = append(h.undoStack, e)
	evicted := h.enforceCapacityLocked()
	info := e.info()
	h.mu.Unlock()

	h.emit(event.KindRedo, info)
	h.emitEvicted(evicted)
	return info.ID, nil
}

// History returns the undo stack metadata from most recent to oldest.
// Each iteration reads the stack as it is when the iteration starts.
func (h *Manager[T]) History() iter.Seq[Info] {
	return h.seq(func() []*entry[T] { return h.undoStack })
}

// RedoHistory returns the redo stack metadata, next redo first.
func (h *Manager[T]) RedoHistory() iter.Seq[Info] {
	return h.seq(func() []*entry[T] { return h.redoStack })
}

func (h *Manager[T]) seq(stack func() []*entry[T]) iter.Seq[Info] {
	return func(yield func(Info) bool) {
		h.mu.Lock()
		entries := make([]*entry[T], len(stack()))
		copy(entries, stack())
		h.mu.Unlock()

		for i := len(entries) - 1; i >= 0; i-- {
			if !yield(entries[i].info()) {
				return
			}
		}
	}
}

// Active returns the metadata of the entry the owner was last set to.
func (h *Manager[T]) Active() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activeLocked().info()
}

// activeLocked returns the undo stack top, or the baseline when empty.
func (h *Manager[T]) activeLocked() *entry[T] {
	if len(h.undoStack) == 0 {
		return h.baseline
	}
	return h.undoStack[len(h.undoStack)-1]
}

// SetCapacity changes the undo bound. k <= 0 removes the bound.
// If the current stack is larger, oldest entries are evicted immediately.
func (h *Manager[T]) SetCapacity(k int) {
	h.mu.Lock()
	h.capacity = max(k, 0)
	evicted := h.enforceCapacityLocked()
	h.mu.Unlock()

	h.emitEvicted(evicted)
}

// Capacity returns the undo bound, 0 when unbounded.
func (h *Manager[T]) Capacity() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.capacity
}

// enforceCapacityLocked drops the oldest undo entries beyond the bound.
func (h *Manager[T]) enforceCapacityLocked() []*entry[T] {
	if h.capacity == 0 || len(h.undoStack) <= h.capacity {
		return nil
	}

	excess := len(h.undoStack) - h.capacity
	evicted := make([]*entry[T], excess)
	copy(evicted, h.undoStack[:excess])

	kept := make([]*entry[T], h.capacity, h.capacity+1)
	copy(kept, h.undoStack[excess:])
	h.undoStack = kept
	return evicted
}

// CanUndo returns true if undo is available.
func (h *Manager[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *Manager[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *Manager[T]) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *Manager[T]) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// State reports which of undo and redo are possible.
func (h *Manager[T]) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch undo, redo := len(h.undoStack) > 0, len(h.redoStack) > 0; {
	case undo && redo:
		return StateHasUndoAndRedo
	case undo:
		return StateHasUndo
	case redo:
		return StateHasRedoOnly
	default:
		return StateEmpty
	}
}

// PeekUndo returns info about the active entry without undoing it.
func (h *Manager[T]) PeekUndo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return Info{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo returns info about the next redo without applying it.
func (h *Manager[T]) PeekRedo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return Info{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// Clear removes all undo/redo history and re-captures the baseline from
// the owner's current state. IDs keep increasing across a Clear.
func (h *Manager[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.baseline = h.newBaseline()
}
