// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared constants and flag types for the signal runtime.

package api

// MaxPayloadSize is the largest payload a single signal may carry.
const MaxPayloadSize = 64 * 1024

// DefaultHeapSize is used when no explicit heap region size is configured.
const DefaultHeapSize = 16 * 1024 * 1024

// DefaultMailboxCapacity is used when a topology descriptor omits one.
const DefaultMailboxCapacity = 256

// DefaultDispatchCapacity bounds the number of distinct kinds an agent's
// dispatch table can hold before registration starts failing.
const DefaultDispatchCapacity = 16

// DefaultMaxEmptyCycles is the quiescence window: consecutive cycles with no
// signal processed before the scheduler shuts down.
const DefaultMaxEmptyCycles = 10

// SignalFlags is a bitset carried on every signal envelope.
type SignalFlags uint16

const (
	FlagOwnsPayload SignalFlags = 1 << iota
	FlagHeapAllocated
	FlagProcessed
	FlagBroadcast
)

func (f SignalFlags) Has(bit SignalFlags) bool { return f&bit != 0 }
