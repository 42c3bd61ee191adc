// Package engine provides Session, the entry point that binds one state
// owner to its history.
//
// A Session owns a snapshot.Owner and a history.Manager and serializes
// every mutating operation, so a mutation followed by a capture can never
// interleave with an undo from another goroutine.
//
// # Quick Start
//
//	s, err := engine.New("A")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	s.Commit("", func(v *string) { *v = "B" })
//	s.Commit("", func(v *string) { *v = "C" })
//
//	s.Undo() // value is "B"
//	s.Undo() // value is "A", returns history.Origin
//	s.Redo() // value is "B"
//
// # Transactions
//
// Transaction runs a fallible mutation. If it returns an error the value
// is rolled back and nothing is recorded:
//
//	_, err := s.Transaction("rename", func(d *Document) error {
//	    if d.Locked {
//	        return ErrLocked
//	    }
//	    d.Title = "final"
//	    return nil
//	})
//
// # Configuration
//
// WithConfig applies a config.Config: history capacity and label prefix,
// logging, metrics and a Lua hook script. WithConfigFile loads the file
// and keeps watching it; a reload applies the new history capacity to the
// live session.
//
// # Hooks
//
// OnCapture, OnUndo, OnRedo and OnEvict forward to the history manager.
// Hooks run after the operation, once the session lock is released, so a
// hook may call any session method, including Capture, Undo and Redo. When
// several goroutines write at once, a hook event may be delivered by
// whichever call is already delivering.
package engine
