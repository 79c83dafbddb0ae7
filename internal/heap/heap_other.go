//go:build !linux

// File: internal/heap/heap_other.go
// Author: momentics <momentics@gmail.com>
//
// Portable fallback region reservation for platforms without an anonymous
// mmap wrapper wired in (see heap_linux.go). A plain Go allocation gives the
// same contiguous-region semantics the arena needs; the OS heap still backs
// it, mirroring this lineage's own non-Linux pool fallbacks.

package heap

const pageSize = 4096

func reserveRegion(size int) ([]byte, error) {
	size = (size + pageSize - 1) &^ (pageSize - 1)
	return make([]byte, size), nil
}
