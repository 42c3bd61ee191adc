package history

import (
	"time"

	"github.com/dshills/rewind/internal/engine/snapshot"
)

// SnapshotID identifies a history entry. IDs increase monotonically per manager.
type SnapshotID uint64

// Origin identifies the baseline captured when the manager was created.
const Origin SnapshotID = 0

// OriginLabel is the label of the baseline entry.
const OriginLabel = "origin"

// Info is the read-only metadata of a history entry.
type Info struct {
	ID        SnapshotID
	Label     string
	Timestamp time.Time
}

// State describes which stacks hold entries.
type State int

const (
	// StateEmpty means neither undo nor redo is possible.
	StateEmpty State = iota

	// StateHasUndo means only undo is possible.
	StateHasUndo

	// StateHasUndoAndRedo means both undo and redo are possible.
	StateHasUndoAndRedo

	// StateHasRedoOnly means only redo is possible.
	StateHasRedoOnly
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateHasUndo:
		return "has-undo"
	case StateHasUndoAndRedo:
		return "has-undo-and-redo"
	case StateHasRedoOnly:
		return "has-redo-only"
	default:
		return "unknown"
	}
}

// Originator produces and consumes snapshots of its own state.
// *snapshot.Owner[T] is the standard implementation.
type Originator[T any] interface {
	CaptureSnapshot() *snapshot.Snapshot[T]
	RestoreFromSnapshot(s *snapshot.Snapshot[T]) error
}

// entry wraps a snapshot with the manager's metadata.
type entry[T any] struct {
	id    SnapshotID
	label string
	snap  *snapshot.Snapshot[T]
}

func (e *entry[T]) info() Info {
	return Info{
		ID:        e.id,
		Label:     e.label,
		Timestamp: e.snap.Timestamp(),
	}
}
