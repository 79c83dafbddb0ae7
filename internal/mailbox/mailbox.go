// File: internal/mailbox/mailbox.go
// Author: momentics <momentics@gmail.com>
//
// Mailbox is a bounded ring buffer of signal pointers, one per agent. The
// runtime is single-threaded cooperative (see SPEC_FULL.md §5), so unlike
// this lineage's lock-free/atomic ring variants a Mailbox needs no atomics:
// enqueue and dequeue only ever run from the scheduler's own goroutine.
// Overflow policy is reject-newest: a full mailbox drops the incoming
// signal and counts it, mirroring the original SignalQueue contract.

package mailbox

import (
	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/signal"
)

// Mailbox is a fixed-capacity ring of *api.Signal. It implements
// api.Ring[*api.Signal].
type Mailbox struct {
	arena *heap.Arena

	buffer []*api.Signal
	mask   uint32

	head, tail, count uint32

	totalEnqueued uint32
	totalDequeued uint32
	dropped       uint32

	ownerAgentID uint32
	active       bool
	overflow     bool
}

// unsafeSlotSize is the conceptual footprint charged against the arena for
// one ring slot (a pointer-sized entry), mirroring signal.unsafeSignalSize's
// approach to accounting for Go-managed memory the arena cannot hold
// directly. See DESIGN.md.
const unsafeSlotSize = 8

func isPowerOfTwo(n uint32) bool { return n != 0 && n&(n-1) == 0 }

func nextPowerOfTwo(n uint32) uint32 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// New creates a Mailbox with the given capacity, rounded up to a power of
// two. capacity == 0 selects api.DefaultMailboxCapacity.
func New(arena *heap.Arena, ownerAgentID uint32, capacity uint32) *Mailbox {
	if capacity == 0 {
		capacity = api.DefaultMailboxCapacity
	}
	if !isPowerOfTwo(capacity) {
		capacity = nextPowerOfTwo(capacity)
	}
	arena.AccountStruct(int(capacity) * unsafeSlotSize)
	return &Mailbox{
		arena:        arena,
		buffer:       make([]*api.Signal, capacity),
		mask:         capacity - 1,
		ownerAgentID: ownerAgentID,
		active:       true,
	}
}

// Enqueue adds sig to the tail of the ring, incrementing its reference
// count. Returns false (and records a drop) if the mailbox is full.
func (m *Mailbox) Enqueue(sig *api.Signal) bool {
	if sig == nil {
		return false
	}
	if m.count >= uint32(len(m.buffer)) {
		m.dropped++
		m.overflow = true
		return false
	}

	idx := m.tail & m.mask
	m.buffer[idx] = sig
	signal.Ref(sig)

	m.tail++
	m.count++
	m.totalEnqueued++
	return true
}

// Dequeue removes and returns the oldest signal. The caller owns the
// returned reference and must eventually release it via signal.Free.
// Does not decrement ref count.
func (m *Mailbox) Dequeue() (*api.Signal, bool) {
	if m.count == 0 {
		return nil, false
	}
	idx := m.head & m.mask
	sig := m.buffer[idx]
	m.buffer[idx] = nil

	m.head++
	m.count--
	m.totalDequeued++
	return sig, true
}

// Peek returns the oldest signal without removing it.
func (m *Mailbox) Peek() (*api.Signal, bool) {
	if m.count == 0 {
		return nil, false
	}
	return m.buffer[m.head&m.mask], true
}

// Len returns the number of signals currently queued.
func (m *Mailbox) Len() int { return int(m.count) }

// Cap returns the fixed ring capacity.
func (m *Mailbox) Cap() int { return len(m.buffer) }

// Dropped returns the lifetime count of signals rejected due to overflow.
func (m *Mailbox) Dropped() uint32 { return m.dropped }

// Overflow reports whether the mailbox has ever rejected a signal.
func (m *Mailbox) Overflow() bool { return m.overflow }

// Destroy drains the mailbox, releasing every held signal reference, and
// marks it inactive. Safe to call more than once; only the first call
// releases the ring's accounted footprint.
func (m *Mailbox) Destroy() {
	if !m.active {
		return
	}
	for {
		sig, ok := m.Dequeue()
		if !ok {
			break
		}
		signal.Free(m.arena, sig)
	}
	m.arena.ReleaseStruct(len(m.buffer) * unsafeSlotSize)
	m.active = false
}

var _ api.Ring[*api.Signal] = (*Mailbox)(nil)
