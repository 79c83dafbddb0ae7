// File: internal/routing/routing.go
// Author: momentics <momentics@gmail.com>
//
// Table is a fixed-capacity, FNV-1a hashed, open-addressed routing table
// keyed by (source agent, signal kind) pairs, resolving to a set of
// destination agent IDs. Linear probing resolves collisions; an unoccupied
// flag (rather than a reserved sentinel id) marks free slots.

package routing

import (
	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/mailbox"
	"github.com/momentics/signalrt/internal/signal"
)

// AgentLookup resolves an agent's mailbox by ID. internal/registry
// implements this without routing importing it, keeping the dependency
// graph acyclic.
type AgentLookup interface {
	Mailbox(agentID uint32) (*mailbox.Mailbox, bool)
}

type entry struct {
	sourceAgentID uint32
	kind          uint32
	dest          []uint32
	occupied      bool
}

// Table is a hash-routed destination map. The zero value is not usable;
// use New.
type Table struct {
	arena      *heap.Arena
	entries    []entry
	mask       uint32
	entryCount uint32
	collisions uint32
	active     bool
}

// unsafeEntrySize is the conceptual footprint charged against the arena for
// one routing entry (source, kind, a destination slice header, an occupied
// flag), matching the accounting approach internal/signal, internal/mailbox,
// and internal/dispatch use for Go-managed memory the arena cannot hold
// directly. See DESIGN.md.
const unsafeEntrySize = 48

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

// New creates a routing table with the given capacity, rounded up to a
// power of two, charging its backbone against arena. capacity == 0 selects
// a small default.
func New(arena *heap.Arena, capacity uint32) *Table {
	if capacity == 0 {
		capacity = 64
	}
	if !isPowerOfTwo(capacity) {
		capacity = nextPowerOfTwo(capacity)
	}
	arena.AccountStruct(int(capacity) * unsafeEntrySize)
	return &Table{
		arena:   arena,
		entries: make([]entry, capacity),
		mask:    capacity - 1,
		active:  true,
	}
}

// Destroy releases the table's accounted backbone footprint. Safe to call
// more than once.
func (t *Table) Destroy() {
	if !t.active {
		return
	}
	t.arena.ReleaseStruct(len(t.entries) * unsafeEntrySize)
	t.active = false
}

// fnv1a combines source and kind into a single 32-bit hash, matching the
// original runtime's two-field FNV-1a mix.
func fnv1a(sourceAgentID, kind uint32) uint32 {
	const offsetBasis uint32 = 2166136261
	const prime uint32 = 16777619

	h := offsetBasis
	for _, b := range []byte{
		byte(sourceAgentID), byte(sourceAgentID >> 8), byte(sourceAgentID >> 16), byte(sourceAgentID >> 24),
		byte(kind), byte(kind >> 8), byte(kind >> 16), byte(kind >> 24),
	} {
		h ^= uint32(b)
		h *= prime
	}
	return h
}

// findSlot returns the slot index for (sourceAgentID, kind): either the
// existing entry's index, or the first empty slot on the probe path.
func (t *Table) findSlot(sourceAgentID, kind uint32) (index uint32, found bool) {
	start := fnv1a(sourceAgentID, kind) & t.mask
	index = start

	for {
		e := &t.entries[index]
		if !e.occupied {
			return index, false
		}
		if e.sourceAgentID == sourceAgentID && e.kind == kind {
			return index, true
		}
		t.collisions++
		index = (index + 1) & t.mask
		if index == start {
			return index, false
		}
	}
}

// Add registers (or replaces) the destination set for (sourceAgentID,
// kind). Returns api.ErrCapacityExceeded if the table is full.
func (t *Table) Add(sourceAgentID, kind uint32, dest []uint32) error {
	if len(dest) == 0 {
		return api.ErrNullPointer
	}
	index, found := t.findSlot(sourceAgentID, kind)
	if !found && t.entryCount >= uint32(len(t.entries)) {
		return api.ErrCapacityExceeded
	}

	e := &t.entries[index]
	e.sourceAgentID = sourceAgentID
	e.kind = kind
	e.dest = append([]uint32(nil), dest...)
	e.occupied = true

	if !found {
		t.entryCount++
	}
	return nil
}

// Lookup returns the destination agent IDs registered for (sourceAgentID,
// kind), or false if no route exists.
func (t *Table) Lookup(sourceAgentID, kind uint32) ([]uint32, bool) {
	index, found := t.findSlot(sourceAgentID, kind)
	if !found {
		return nil, false
	}
	return t.entries[index].dest, true
}

// EntryCount returns the number of occupied routing entries.
func (t *Table) EntryCount() uint32 { return t.entryCount }

// Collisions returns the lifetime count of probe collisions encountered.
func (t *Table) Collisions() uint32 { return t.collisions }

// Broadcast routes sig to every destination registered for
// (sig.Origin, sig.Kind) via lookup's mailboxes, setting api.FlagBroadcast
// when there is more than one destination. It does not release sig; the
// caller still owns its own reference. Returns the number of agents the
// signal was delivered to.
func Broadcast(t *Table, lookup AgentLookup, sig *api.Signal) int {
	dest, ok := t.Lookup(uint32(sig.Origin), uint32(sig.Kind))
	if !ok {
		return 0
	}
	if len(dest) > 1 {
		sig.Flags |= api.FlagBroadcast
	}

	delivered := 0
	for _, agentID := range dest {
		mb, ok := lookup.Mailbox(agentID)
		if !ok || mb == nil {
			continue
		}
		if mb.Enqueue(sig) {
			delivered++
		}
	}
	return delivered
}

// Emit combines signal creation and broadcast, mirroring emit_signal: a
// signal is allocated, routed, and the creator's own reference is always
// released afterward. If no route exists, Emit's release drops the
// signal's only reference, freeing it immediately. Returns the number of
// destinations reached.
func Emit(arena *heap.Arena, t *Table, lookup AgentLookup, kind, origin uint16, payload []byte) (int, error) {
	sig, err := signal.Create(arena, kind, origin, payload)
	if err != nil {
		return 0, err
	}
	delivered := Broadcast(t, lookup, sig)
	signal.Free(arena, sig)
	return delivered, nil
}
