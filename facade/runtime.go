// File: facade/runtime.go
// Author: momentics <momentics@gmail.com>
//
// Runtime is the composition root: one call builds the heap arena, wires
// the agent topology, and stands up the scheduler, the same one-call-setup
// shape this lineage's top-level facade used for its network subsystems,
// generalized here to a static agent network with no transport layer of
// its own.

package facade

import (
	"fmt"
	"sync"

	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/control"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/registry"
	"github.com/momentics/signalrt/internal/routing"
	"github.com/momentics/signalrt/internal/scheduler"
	"github.com/momentics/signalrt/internal/trace"
)

// Config is the one-shot construction contract for a Runtime.
type Config struct {
	// HeapSize is the byte size of the single reserved arena region.
	// 0 selects api.DefaultHeapSize.
	HeapSize int

	// TraceCapacity bounds the dispatch-outcome ring. 0 selects a small
	// default (see internal/trace.New).
	TraceCapacity int

	// MaxEmptyCycles seeds the scheduler's quiescence window. It remains
	// hot-reloadable afterward via SetConfig({"max_empty_cycles": n}).
	MaxEmptyCycles uint64
}

// DefaultConfig returns a Config with the runtime's standard defaults.
func DefaultConfig() *Config {
	return &Config{
		HeapSize:       api.DefaultHeapSize,
		TraceCapacity:  256,
		MaxEmptyCycles: api.DefaultMaxEmptyCycles,
	}
}

// Runtime wires an arena, a registry built from a topology descriptor, a
// trace ring, and a scheduler into one cohesive unit, and exposes the
// control-plane surface (config, metrics, debug probes) around it.
type Runtime struct {
	mu      sync.RWMutex
	started bool

	arena    *heap.Arena
	registry *registry.Registry
	trace    *trace.Trace
	sched    *scheduler.Scheduler

	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

// New builds a Runtime from a topology descriptor and a Config. On any
// sub-failure the partially built registry is rolled back and the error is
// returned; there is nothing left half-built to observe.
func New(topo registry.TopologyDescriptor, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	arena, err := heap.New(cfg.HeapSize)
	if err != nil {
		return nil, fmt.Errorf("facade: reserve heap: %w", err)
	}

	reg, err := registry.InitTopology(arena, topo)
	if err != nil {
		return nil, fmt.Errorf("facade: init topology: %w", err)
	}

	tr := trace.New(cfg.TraceCapacity)

	configStore := control.NewConfigStore()
	configStore.SetConfig(map[string]any{
		"max_empty_cycles": cfg.MaxEmptyCycles,
	})

	maxEmptyCycles := func() uint64 {
		snap := configStore.GetSnapshot()
		if v, ok := snap["max_empty_cycles"].(uint64); ok {
			return v
		}
		return api.DefaultMaxEmptyCycles
	}

	sched := scheduler.New(arena, reg, tr, maxEmptyCycles)

	metrics := control.NewMetricsRegistry()
	debug := control.NewDebugProbes()
	control.RegisterPlatformProbes(debug)

	r := &Runtime{
		arena:    arena,
		registry: reg,
		trace:    tr,
		sched:    sched,
		config:   configStore,
		metrics:  metrics,
		debug:    debug,
	}

	debug.RegisterProbe("runtime.stats", func() any { return r.Stats() })
	debug.RegisterProbe("runtime.trace", func() any { return tr.Snapshot() })

	return r, nil
}

// Emit creates a signal and routes it from sourceAgentID for kind, mirroring
// routing.Emit's create-route-release sequence.
func (r *Runtime) Emit(sourceAgentID uint32, kind uint16, payload []byte) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return routing.Emit(r.arena, r.registry.Routing(), r.registry, kind, uint16(sourceAgentID), payload)
}

// Run drives the scheduler until quiescence or Shutdown, returning the
// total signals processed across the whole run.
func (r *Runtime) Run() uint64 {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return r.sched.Run()
}

// RunCycles runs exactly n cycles regardless of quiescence.
func (r *Runtime) RunCycles(n uint64) uint64 {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return r.sched.RunCycles(n)
}

// Shutdown stops the scheduler and, once Run or RunCycles has been called,
// tears down the registry's agents, releasing every held signal reference.
// On a runtime that has never run, only the scheduler is stopped and the
// registry is left in place. Safe to call more than once.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return r.sched.Shutdown()
	}
	err := r.sched.Shutdown()
	registry.ShutdownTopology(r.registry)
	r.started = false
	return err
}

// GetConfig returns a snapshot of the runtime's live configuration.
func (r *Runtime) GetConfig() map[string]any {
	return r.config.GetSnapshot()
}

// SetConfig merges new configuration values; a new "max_empty_cycles" value
// takes effect on the scheduler's next cycle without a restart.
func (r *Runtime) SetConfig(cfg map[string]any) error {
	r.config.SetConfig(cfg)
	return nil
}

// OnReload registers a hook invoked whenever SetConfig applies an update.
func (r *Runtime) OnReload(fn func()) {
	r.config.OnReload(fn)
}

// RegisterDebugProbe exposes a named debug hook alongside the runtime's own.
func (r *Runtime) RegisterDebugProbe(name string, fn func() any) {
	r.debug.RegisterProbe(name, fn)
}

// DumpState returns the output of every registered debug probe.
func (r *Runtime) DumpState() map[string]any {
	return r.debug.DumpState()
}

// RegisterProbe satisfies api.Debug; it delegates to RegisterDebugProbe.
func (r *Runtime) RegisterProbe(name string, fn func() any) {
	r.debug.RegisterProbe(name, fn)
}

// Stats merges heap, scheduler, and trace statistics into a single
// snapshot — there is no parallel metrics exporter to keep in sync.
func (r *Runtime) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	heapStat := r.arena.Stat()
	schedStat := r.sched.Stat(heapStat.Used)

	out := map[string]any{
		"heap.used":            heapStat.Used,
		"heap.peak":            heapStat.Peak,
		"heap.total":           heapStat.Total,
		"scheduler.cycles":     schedStat.CyclesRun,
		"scheduler.signals":    schedStat.SignalsProcessed,
		"scheduler.agents":     schedStat.AgentsActive,
		"scheduler.errors":     schedStat.DispatchErrors,
		"scheduler.total_ns":   schedStat.TotalTimeNS,
		"scheduler.throughput": schedStat.ThroughputPerSec,
		"registry.agent_count": r.registry.Count(),
		"trace.len":            r.trace.Len(),
		"trace.cap":            r.trace.Cap(),
		"trace.evicted":        r.trace.Evicted(),
	}
	for k, v := range r.metrics.GetSnapshot() {
		out[k] = v
	}
	return out
}

// Agent exposes the registered agent by id, for callers that need to
// register handlers before Run.
func (r *Runtime) Agent(agentID uint32) (*registry.Agent, bool) {
	return r.registry.Agent(agentID)
}

var (
	_ api.Control          = (*Runtime)(nil)
	_ api.Debug            = (*Runtime)(nil)
	_ api.GracefulShutdown = (*Runtime)(nil)
)
