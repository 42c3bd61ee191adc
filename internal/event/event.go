package event

// Kind discriminates events.
type Kind uint8

const (
	// KindCapture is emitted after a snapshot is pushed.
	KindCapture Kind = iota + 1

	// KindUndo is emitted after a successful undo.
	KindUndo

	// KindRedo is emitted after a successful redo.
	KindRedo

	// KindEvict is emitted when an entry is dropped by the capacity bound.
	KindEvict
)

// Kinds lists every event kind in declaration order.
var Kinds = []Kind{KindCapture, KindUndo, KindRedo, KindEvict}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCapture:
		return "capture"
	case KindUndo:
		return "undo"
	case KindRedo:
		return "redo"
	case KindEvict:
		return "evict"
	default:
		return "unknown"
	}
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Event is a discriminated payload.
type Event[P any] struct {
	Kind Kind
	Data P
}

// New creates an event.
func New[P any](kind Kind, data P) Event[P] {
	return Event[P]{Kind: kind, Data: data}
}

// Handler processes an event.
type Handler[P any] func(e Event[P]) error
