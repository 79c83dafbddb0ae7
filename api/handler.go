// File: api/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatch contract: register handlers by kind, optionally guarded, with a
// default fallback for unmatched kinds.

package api

// Dispatcher is the contract a per-agent dispatch table satisfies.
type Dispatcher interface {
	// Register adds or updates the handler for kind. guard may be nil.
	Register(kind uint16, handler HandlerFunc, guard GuardFunc) error

	// Unregister deactivates the handler for kind.
	Unregister(kind uint16) error

	// SetDefault installs the fallback handler invoked on a dispatch miss.
	SetDefault(handler HandlerFunc)

	// SetState caches the agent state pointer used by Invoke.
	SetState(state any)

	// Invoke dispatches sig using the cached agent state.
	Invoke(sig *Signal) error
}
