// Package event provides the synchronous notification surface used by the
// history manager.
//
// Events are discriminated payloads: an Event carries a Kind and a typed
// Data value, and filtering is a pure match on Kind. There is no runtime
// type inspection of payloads.
//
// # Kinds
//
//	capture  - a snapshot was pushed onto the undo stack
//	undo     - an undo succeeded; Data describes the now-active snapshot
//	redo     - a redo succeeded; Data describes the now-active snapshot
//	evict    - the capacity bound dropped the oldest undo entry
//
// # Delivery
//
// Dispatch runs every matching handler synchronously, in registration
// order, in the caller's goroutine. A handler that returns an error or
// panics does not stop delivery to the remaining handlers; the failure is
// wrapped in a HandlerError or PanicError and passed to the registry's
// ErrorHandler.
//
//	reg := event.NewRegistry[Info](event.WithErrorHandler(logFailure))
//	sub, _ := reg.Subscribe(event.Only(event.KindCapture), func(e event.Event[Info]) error {
//		fmt.Println("captured", e.Data.ID)
//		return nil
//	})
//	defer sub.Cancel()
package event
