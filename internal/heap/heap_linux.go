//go:build linux

// File: internal/heap/heap_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific region reservation: a single anonymous mmap, matching the
// original runtime's page-aligned mmap-backed heap.

package heap

import "golang.org/x/sys/unix"

const pageSize = 4096

func reserveRegion(size int) ([]byte, error) {
	size = (size + pageSize - 1) &^ (pageSize - 1)
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return region, nil
}
