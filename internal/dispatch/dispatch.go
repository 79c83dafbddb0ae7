// File: internal/dispatch/dispatch.go
// Author: momentics <momentics@gmail.com>
//
// Table is a per-agent dispatch table: a linear-scan array of
// (kind, handler, guard) entries, a default fallback, and lookup/hit/miss
// statistics. Linear scan is deliberate — these tables are small
// (api.DefaultDispatchCapacity-ish) and cache locality beats a hash table
// at that size.

package dispatch

import (
	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/mailbox"
	"github.com/momentics/signalrt/internal/signal"
)

type tableEntry struct {
	kind     uint16
	handler  api.HandlerFunc
	guard    api.GuardFunc
	hasGuard bool
	active   bool
}

// Table implements api.Dispatcher for a single agent.
type Table struct {
	arena   *heap.Arena
	agentID uint32
	state   any

	entries []tableEntry
	count   int
	active  bool

	defaultHandler api.HandlerFunc

	lookupCount uint32
	hitCount    uint32
	missCount   uint32
}

// unsafeEntrySize is the conceptual footprint charged against the arena for
// one dispatch entry (kind tag plus two function values), matching the
// approach internal/signal and internal/mailbox use for Go-managed memory
// the arena cannot hold directly. See DESIGN.md.
const unsafeEntrySize = 48

// New creates a dispatch table for agentID with room for capacity distinct
// kinds, charging the table's backbone against arena. capacity == 0
// selects api.DefaultDispatchCapacity.
func New(arena *heap.Arena, agentID uint32, capacity int) *Table {
	if capacity <= 0 {
		capacity = api.DefaultDispatchCapacity
	}
	arena.AccountStruct(capacity * unsafeEntrySize)
	return &Table{
		arena:   arena,
		agentID: agentID,
		entries: make([]tableEntry, capacity),
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

// Register adds or replaces the handler for kind. Returns
// api.ErrCapacityExceeded once the table is full and kind is new.
func (t *Table) Register(kind uint16, handler api.HandlerFunc, guard api.GuardFunc) error {
	if handler == nil {
		return api.ErrNullPointer
	}

	for i := 0; i < t.count; i++ {
		if t.entries[i].active && t.entries[i].kind == kind {
			t.entries[i].handler = handler
			t.entries[i].guard = guard
			t.entries[i].hasGuard = guard != nil
			return nil
		}
	}

	if t.count >= len(t.entries) {
		return api.ErrCapacityExceeded
	}

	t.entries[t.count] = tableEntry{
		kind:     kind,
		handler:  handler,
		guard:    guard,
		hasGuard: guard != nil,
		active:   true,
	}
	t.count++
	return nil
}

// Unregister deactivates the handler for kind. Returns api.ErrNoHandler if
// kind was never registered.
func (t *Table) Unregister(kind uint16) error {
	for i := 0; i < t.count; i++ {
		if t.entries[i].active && t.entries[i].kind == kind {
			t.entries[i].active = false
			return nil
		}
	}
	return api.ErrNoHandler
}

// SetDefault installs the fallback handler invoked when no entry matches.
func (t *Table) SetDefault(handler api.HandlerFunc) { t.defaultHandler = handler }

// SetState caches the agent state pointer passed to every handler/guard
// invocation.
func (t *Table) SetState(state any) { t.state = state }

func (t *Table) lookup(kind uint16) (*tableEntry, bool) {
	for i := 0; i < t.count; i++ {
		if t.entries[i].active && t.entries[i].kind == kind {
			return &t.entries[i], true
		}
	}
	return nil, false
}

// Invoke dispatches sig against the registered entry for sig.Kind, falling
// back to the default handler on a miss. Returns api.ErrGuardFailed if a
// guard rejects the signal, a new *api.Error with code
// api.ErrCodeHandlerFailed if the handler returns a non-nil error, or
// api.ErrNoHandler if there is neither a match nor a default.
func (t *Table) Invoke(sig *api.Signal) error {
	if sig == nil {
		return api.ErrNullPointer
	}
	t.lookupCount++

	entry, found := t.lookup(sig.Kind)
	if !found {
		t.missCount++
		if t.defaultHandler == nil {
			return api.ErrNoHandler
		}
		if err := t.defaultHandler(t.state, sig); err != nil {
			return api.NewError(api.ErrCodeHandlerFailed, "default handler returned an error").WithContext("cause", err.Error())
		}
		return nil
	}

	t.hitCount++
	if entry.hasGuard && entry.guard != nil {
		if !entry.guard(t.state, sig) {
			return api.ErrGuardFailed
		}
	}

	if err := entry.handler(t.state, sig); err != nil {
		return api.NewError(api.ErrCodeHandlerFailed, "handler returned an error").WithContext("cause", err.Error())
	}
	return nil
}

// LookupCount, HitCount, and MissCount report lifetime dispatch
// statistics.
func (t *Table) LookupCount() uint32 { return t.lookupCount }
func (t *Table) HitCount() uint32    { return t.hitCount }
func (t *Table) MissCount() uint32   { return t.missCount }

// ResetStats zeroes the lookup/hit/miss counters.
func (t *Table) ResetStats() { t.lookupCount, t.hitCount, t.missCount = 0, 0, 0 }

// ProcessQueue dequeues and dispatches every signal currently in mb,
// releasing each signal's reference after dispatch. Dispatch errors do not
// stop the drain and are not surfaced or traced. Returns the number of
// signals processed.
func ProcessQueue(t *Table, arena *heap.Arena, mb *mailbox.Mailbox) int {
	processed := 0
	for {
		sig, ok := mb.Dequeue()
		if !ok {
			break
		}
		t.Invoke(sig)
		signal.Free(arena, sig)
		processed++
	}
	return processed
}

// ProcessBatch processes at most maxSignals signals from mb, for fair
// round-robin scheduling across agents. Returns the number actually
// processed.
func ProcessBatch(t *Table, arena *heap.Arena, mb *mailbox.Mailbox, maxSignals int) int {
	processed := 0
	for processed < maxSignals {
		sig, ok := mb.Dequeue()
		if !ok {
			break
		}
		t.Invoke(sig)
		signal.Free(arena, sig)
		processed++
	}
	return processed
}

var _ api.Dispatcher = (*Table)(nil)
