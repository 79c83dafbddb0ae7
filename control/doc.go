// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, runtime metrics, configuration control, and debug introspection
// for the signal runtime's control plane — the one part of the system that
// may be touched from outside the scheduler's single-threaded cycle loop
// (an operator issuing a hot reload, a health probe reading stats).
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload (e.g. max_empty_cycles)
//   - Metrics registration for scheduler/heap/trace stats
//   - State export, debug hooks, and probe registration
package control
