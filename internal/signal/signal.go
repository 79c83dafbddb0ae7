// File: internal/signal/signal.go
// Author: momentics <momentics@gmail.com>
//
// Signal lifecycle: creation, reference counting, and release. Payloads are
// copied into arena-backed storage so a signal can be freed independently of
// whatever buffer the caller passed in.

package signal

import (
	"sync/atomic"

	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
)

var clock uint64

// nextTimestamp returns a monotonically increasing logical clock value,
// standing in for the original runtime's cycle counter (RDTSC is not
// available without cgo).
func nextTimestamp() uint64 {
	return atomic.AddUint64(&clock, 1)
}

// Create allocates a signal and copies payload into heap-backed storage,
// aligned to 8 bytes. A nil or empty payload is permitted. Returns
// api.ErrPayloadTooLarge if payload exceeds api.MaxPayloadSize.
func Create(arena *heap.Arena, kind, origin uint16, payload []byte) (*api.Signal, error) {
	if len(payload) > api.MaxPayloadSize {
		return nil, api.ErrPayloadTooLarge
	}

	sig := &api.Signal{
		Kind:      kind,
		Origin:    origin,
		Flags:     0,
		RefCount:  1,
		Timestamp: nextTimestamp(),
	}
	arena.AccountStruct(int(unsafeSignalSize))

	if len(payload) > 0 {
		buf, err := arena.Allocate(len(payload))
		if err != nil {
			arena.ReleaseStruct(int(unsafeSignalSize))
			return nil, err
		}
		copy(buf, payload)
		sig.Payload = buf[:len(payload)]
		sig.Capacity = uint32(cap(buf))
		sig.Flags |= api.FlagOwnsPayload | api.FlagHeapAllocated
	}

	return sig, nil
}

// unsafeSignalSize is the conceptual footprint charged against the arena for
// a Signal header. It mirrors sizeof(Signal) == 32 in the original layout;
// Go's header is larger, but the accounting only needs a stable constant for
// used/peak/total to stay internally consistent. See DESIGN.md.
const unsafeSignalSize = 32

// Ref increments the signal's reference count. Mailbox.Enqueue calls it for
// every reference it queues.
func Ref(s *api.Signal) {
	if s == nil {
		return
	}
	if s.RefCount < ^uint16(0) {
		s.RefCount++
	}
}

// Free decrements the signal's reference count, releasing its payload and
// header back to arena once the count reaches zero. Safe to call on a nil
// signal.
func Free(arena *heap.Arena, s *api.Signal) {
	if s == nil {
		return
	}
	if s.RefCount > 0 {
		s.RefCount--
	}
	if s.RefCount > 0 {
		return
	}

	if s.Flags.Has(api.FlagOwnsPayload) && s.Payload != nil {
		arena.Free(s.Payload[:cap(s.Payload)])
		s.Payload = nil
	}
	arena.ReleaseStruct(int(unsafeSignalSize))
}

// MarkProcessed sets the processed flag and releases the caller's reference.
func MarkProcessed(arena *heap.Arena, s *api.Signal) {
	if s == nil {
		return
	}
	s.Flags |= api.FlagProcessed
	Free(arena, s)
}
