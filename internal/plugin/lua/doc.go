// Package lua runs Lua hook scripts as history subscribers.
//
// A hook script defines any of the global functions on_capture, on_undo,
// on_redo and on_evict. Each is called with the entry's id, label and
// timestamp (Unix milliseconds):
//
//	function on_capture(id, label, ts)
//	  print("captured " .. label)
//	end
//
//	function on_undo(id, label, ts)
//	  if id == 0 then
//	    error("undo reached the origin")
//	  end
//	end
//
// Scripts run in a sandbox: only the base, table, string and math
// libraries are opened, loaders such as dofile and require are removed,
// and print is routed to the configured zap logger. A script error is
// returned to the event registry as a handler error; it never affects
// history state.
package lua
