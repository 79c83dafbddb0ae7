// File: internal/scheduler/scheduler.go
// Author: momentics <momentics@gmail.com>
//
// Scheduler drives the tidal cycle: REST (bookkeeping) then a combined
// SENSE/ACT walk over every agent in ascending id order, dequeuing at most
// one signal per agent per cycle and dispatching it. Unlike the original
// runtime, where dispatch invocation was left as a commented-out stub,
// here ACT actually calls the agent's dispatch table — that wiring is the
// whole point of having a dispatch table at all.

package scheduler

import (
	"time"

	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/registry"
	"github.com/momentics/signalrt/internal/signal"
	"github.com/momentics/signalrt/internal/trace"
)

// Phase identifies the current point in a tidal cycle.
type Phase int

const (
	PhaseRest Phase = iota
	PhaseSense
	PhaseAct
)

func (p Phase) String() string {
	switch p {
	case PhaseRest:
		return "REST"
	case PhaseSense:
		return "SENSE"
	case PhaseAct:
		return "ACT"
	default:
		return "UNKNOWN"
	}
}

// Stats is a point-in-time snapshot of scheduler-level statistics.
type Stats struct {
	CyclesRun        uint64
	SignalsProcessed uint64
	AgentsActive     uint64
	DispatchErrors   uint64
	TotalTimeNS      uint64
	ThroughputPerSec uint64
}

// Scheduler owns a registry and drives its cycle loop. The zero value is
// not usable; use New.
type Scheduler struct {
	arena    *heap.Arena
	registry *registry.Registry
	trace    *trace.Trace

	phase          Phase
	running        bool
	emptyCycles    uint64
	maxEmptyCycles func() uint64

	cycleCount       uint64
	signalsProcessed uint64
	agentsActive     uint64
	dispatchErrors   uint64

	startTime time.Time
	endTime   time.Time
}

// New creates a Scheduler over reg, recording every dispatched signal's
// outcome into tr. maxEmptyCycles is consulted after each cycle of Run's
// loop (RunCycle itself never reads it), permitting a hot-reloaded
// quiescence window; pass a closure over a Control store's snapshot to make
// it live.
func New(arena *heap.Arena, reg *registry.Registry, tr *trace.Trace, maxEmptyCycles func() uint64) *Scheduler {
	if maxEmptyCycles == nil {
		maxEmptyCycles = func() uint64 { return api.DefaultMaxEmptyCycles }
	}
	return &Scheduler{
		arena:          arena,
		registry:       reg,
		trace:          tr,
		running:        true,
		maxEmptyCycles: maxEmptyCycles,
	}
}

// Phase returns the scheduler's current phase, for observability only.
func (s *Scheduler) Phase() Phase { return s.phase }

// Running reports whether the scheduler is still accepting cycles.
func (s *Scheduler) Running() bool { return s.running }

// RunCycle executes one REST → SENSE → ACT cycle across every agent in
// ascending id order, processing at most one signal per agent. Returns the
// number of signals processed this cycle.
func (s *Scheduler) RunCycle() int {
	s.phase = PhaseRest
	processed := 0

	for _, agent := range s.registry.Agents() {
		if agent.Mailbox == nil {
			continue
		}

		s.phase = PhaseSense
		sig, ok := agent.Mailbox.Dequeue()
		if !ok {
			continue
		}

		s.phase = PhaseAct
		err := agent.Dispatch.Invoke(sig)

		code := api.ErrCodeOK
		if err != nil {
			s.dispatchErrors++
			if derr, ok := err.(*api.Error); ok {
				code = derr.Code
			}
		}

		freqName, _ := s.registry.FrequencyName(uint32(sig.Kind))
		if s.trace != nil {
			s.trace.Record(trace.Outcome{
				Cycle:         s.cycleCount,
				AgentID:       agent.ID,
				Kind:          sig.Kind,
				Code:          code,
				FrequencyName: freqName,
			})
		}

		agent.SignalCount++
		signal.Free(s.arena, sig)

		processed++
		s.signalsProcessed++
	}

	s.cycleCount++
	if processed > 0 {
		s.agentsActive += uint64(processed)
		s.emptyCycles = 0
	} else {
		s.emptyCycles++
	}

	return processed
}

// Run drives cycles until quiescence (emptyCycles reaches the current
// max_empty_cycles, consulted fresh each cycle) or Shutdown is called.
func (s *Scheduler) Run() uint64 {
	s.startTime = time.Now()

	for s.running {
		s.RunCycle()
		if s.emptyCycles >= s.maxEmptyCycles() {
			break
		}
	}

	s.endTime = time.Now()
	return s.signalsProcessed
}

// RunCycles runs exactly n cycles regardless of quiescence; used by tests
// and deterministic benchmarks.
func (s *Scheduler) RunCycles(n uint64) uint64 {
	s.startTime = time.Now()
	for i := uint64(0); i < n; i++ {
		s.RunCycle()
	}
	s.endTime = time.Now()
	return s.signalsProcessed
}

// Shutdown sets running to false; Run exits after its current cycle.
func (s *Scheduler) Shutdown() error {
	s.running = false
	return nil
}

// Stat returns the scheduler's current statistics, including wall time and
// throughput computed from the most recent Run/RunCycles span.
func (s *Scheduler) Stat(heapUsed int) Stats {
	elapsed := s.endTime.Sub(s.startTime)
	if s.endTime.IsZero() || s.startTime.IsZero() {
		elapsed = 0
	}
	ns := uint64(elapsed.Nanoseconds())

	var throughput uint64
	if ns > 0 {
		sec := ns / 1_000_000_000
		if sec > 0 {
			throughput = s.signalsProcessed / sec
		} else {
			throughput = (s.signalsProcessed * 1_000_000_000) / ns
		}
	}

	return Stats{
		CyclesRun:        s.cycleCount,
		SignalsProcessed: s.signalsProcessed,
		AgentsActive:     s.agentsActive,
		DispatchErrors:   s.dispatchErrors,
		TotalTimeNS:      ns,
		ThroughputPerSec: throughput,
	}
}

var _ api.GracefulShutdown = (*Scheduler)(nil)
