package history

import (
	"go.uber.org/zap"

	"github.com/dshills/rewind/internal/event"
)

// Callback receives the metadata of the entry an operation produced.
type Callback func(info Info) error

// OnCapture registers fn to run after every successful Capture.
func (h *Manager[T]) OnCapture(fn Callback) event.Subscription {
	return h.on(event.KindCapture, fn)
}

// OnUndo registers fn to run after every successful Undo.
// fn receives the entry that is now active.
func (h *Manager[T]) OnUndo(fn Callback) event.Subscription {
	return h.on(event.KindUndo, fn)
}

// OnRedo registers fn to run after every successful Redo.
func (h *Manager[T]) OnRedo(fn Callback) event.Subscription {
	return h.on(event.KindRedo, fn)
}

// OnEvict registers fn to run for each entry dropped by the capacity bound.
func (h *Manager[T]) OnEvict(fn Callback) event.Subscription {
	return h.on(event.KindEvict, fn)
}

// Subscribe registers a handler for every kind matched by filter.
func (h *Manager[T]) Subscribe(filter event.Filter, handler event.Handler[Info]) (event.Subscription, error) {
	return h.hooks.Subscribe(filter, handler)
}

func (h *Manager[T]) on(kind event.Kind, fn Callback) event.Subscription {
	if fn == nil {
		return nil
	}
	sub, _ := h.hooks.On(kind, func(e event.Event[Info]) error {
		return fn(e.Data)
	})
	return sub
}

func (h *Manager[T]) emit(kind event.Kind, info Info) {
	e := event.New(kind, info)
	if !h.deferred {
		h.hooks.Dispatch(e)
		return
	}
	h.pendingMu.Lock()
	h.pending = append(h.pending, e)
	h.pendingMu.Unlock()
}

// DeliverHooks dispatches queued events in the order they occurred. It is
// a no-op without WithDeferredHooks. Events queued by a hook, or by another
// goroutine while delivery is in progress, are delivered by the call that
// is already delivering, so a hook may safely trigger Capture, Undo or Redo.
func (h *Manager[T]) DeliverHooks() {
	for {
		if !h.deliverMu.TryLock() {
			return
		}
		for {
			h.pendingMu.Lock()
			if len(h.pending) == 0 {
				h.pendingMu.Unlock()
				break
			}
			e := h.pending[0]
			h.pending = h.pending[1:]
			h.pendingMu.Unlock()

			h.hooks.Dispatch(e)
		}
		h.deliverMu.Unlock()

		// Recheck: an event queued just before the unlock saw the lock held
		h.pendingMu.Lock()
		empty := len(h.pending) == 0
		h.pendingMu.Unlock()
		if empty {
			return
		}
	}
}

func (h *Manager[T]) emitEvicted(evicted []*entry[T]) {
	for _, e := range evicted {
		info := e.info()
		h.logger.Debug("history entry evicted",
			zap.Uint64("id", uint64(info.ID)),
			zap.String("label", info.Label),
		)
		h.emit(event.KindEvict, info)
	}
}

// hookFailed logs a callback failure. History state is already final.
func (h *Manager[T]) hookFailed(err error) {
	h.logger.Warn("history hook failed", zap.Error(err))
}
