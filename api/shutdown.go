// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown unifies the shutdown contract across components that own
// background resources (schedulers, registries, pollers).
type GracefulShutdown interface {
	// Shutdown stops the component and releases its resources. Safe to
	// call more than once.
	Shutdown() error
}
