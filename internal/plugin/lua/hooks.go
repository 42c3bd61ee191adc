package lua

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/rewind/internal/engine/history"
	"github.com/dshills/rewind/internal/event"
)

// hookFunctions maps event kinds to the script functions handling them.
var hookFunctions = map[event.Kind]string{
	event.KindCapture: "on_capture",
	event.KindUndo:    "on_undo",
	event.KindRedo:    "on_redo",
	event.KindEvict:   "on_evict",
}

// Subscriber is the registration surface of a history manager.
type Subscriber interface {
	Subscribe(filter event.Filter, handler event.Handler[history.Info]) (event.Subscription, error)
}

// Hooks exposes a loaded script's hook functions as a history subscriber.
type Hooks struct {
	state *State
}

// LoadHooks creates a sandboxed state and runs the script at path.
func LoadHooks(path string, opts ...StateOption) (*Hooks, error) {
	state := NewState(opts...)
	if err := state.DoFile(path); err != nil {
		_ = state.Close()
		return nil, err
	}
	return &Hooks{state: state}, nil
}

// NewHooks wraps an already-initialized state.
func NewHooks(state *State) *Hooks {
	return &Hooks{state: state}
}

// Kinds returns the event kinds the script defines a function for.
func (h *Hooks) Kinds() []event.Kind {
	var kinds []event.Kind
	for _, k := range event.Kinds {
		if h.state.HasFunction(hookFunctions[k]) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Attach subscribes the script's functions to src.
// Only kinds with a defined function are subscribed.
func (h *Hooks) Attach(src Subscriber) (event.Subscription, error) {
	return src.Subscribe(event.Only(h.Kinds()...), h.handle)
}

func (h *Hooks) handle(e event.Event[history.Info]) error {
	return h.state.Call(hookFunctions[e.Kind],
		lua.LNumber(e.Data.ID),
		lua.LString(e.Data.Label),
		lua.LNumber(e.Data.Timestamp.UnixMilli()),
	)
}

// Close releases the underlying Lua state.
func (h *Hooks) Close() error {
	return h.state.Close()
}
