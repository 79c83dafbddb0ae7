// File: internal/trace/trace.go
// Author: momentics <momentics@gmail.com>
//
// Trace is a bounded ring of recent dispatch outcomes, used to give
// Control.Stats() a recent-activity window without standing up a separate
// telemetry pipeline. Backed by eapache/queue, the same growable ring
// buffer this lineage's transport layer reaches for as its internal FIFO.

package trace

import (
	"github.com/eapache/queue"

	"github.com/momentics/signalrt/api"
)

// Outcome records one dispatch invocation's result.
type Outcome struct {
	Cycle         uint64
	AgentID       uint32
	Kind          uint16
	Code          api.ErrorCode
	FrequencyName string
}

// Trace is a fixed-capacity FIFO of Outcome values; pushing past capacity
// evicts the oldest entry.
type Trace struct {
	q        *queue.Queue
	capacity int
	evicted  uint64
}

// New creates a Trace holding at most capacity outcomes. capacity <= 0
// selects a small default.
func New(capacity int) *Trace {
	if capacity <= 0 {
		capacity = 256
	}
	return &Trace{q: queue.New(), capacity: capacity}
}

// Record appends outcome, evicting the oldest entry if the trace is at
// capacity.
func (t *Trace) Record(o Outcome) {
	t.q.Add(o)
	for t.q.Length() > t.capacity {
		t.q.Remove()
		t.evicted++
	}
}

// Snapshot returns the current window, oldest first.
func (t *Trace) Snapshot() []Outcome {
	n := t.q.Length()
	out := make([]Outcome, n)
	for i := 0; i < n; i++ {
		out[i] = t.q.Get(i).(Outcome)
	}
	return out
}

// Len returns the number of outcomes currently held.
func (t *Trace) Len() int { return t.q.Length() }

// Cap returns the fixed trace capacity.
func (t *Trace) Cap() int { return t.capacity }

// Evicted returns the lifetime count of outcomes dropped due to capacity.
func (t *Trace) Evicted() uint64 { return t.evicted }
