// File: internal/heap/heap.go
// Author: momentics <momentics@gmail.com>
//
// Arena is a coarse bump-allocator with a first-fit free list, backing the
// byte buffers the runtime draws at steady state (signal payloads). Other
// runtime structures, mailbox rings included, are ordinary Go allocations
// whose footprint is only counted via AccountStruct. It is reserved once in
// a single contiguous region; there is no growth.

package heap

import (
	"sync"
	"unsafe"

	"github.com/momentics/signalrt/api"
)

type freeBlock struct {
	offset int
	size   int
}

// Arena is a single-region allocator. The zero value is not usable; use New.
type Arena struct {
	mu       sync.Mutex
	region   []byte
	offset   int // bump watermark, in bytes
	used     int
	peak     int
	total    int
	freeList []freeBlock
}

// New reserves a region of size bytes (rounded up to the page size by the
// platform reservation helper). size == 0 selects api.DefaultHeapSize.
func New(size int) (*Arena, error) {
	if size <= 0 {
		size = api.DefaultHeapSize
	}
	region, err := reserveRegion(size)
	if err != nil {
		return nil, err
	}
	return &Arena{region: region, total: len(region)}, nil
}

const alignment = 8

func alignUp(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// Allocate returns a zeroed, 8-byte-aligned slice drawn from the arena whose
// length is n rounded up to a multiple of 8, or api.ErrAllocFailed if the
// region is exhausted.
func (a *Arena) Allocate(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	n = alignUp(n)

	a.mu.Lock()
	defer a.mu.Unlock()

	// First-fit scan of the free list.
	for i, blk := range a.freeList {
		if blk.size >= n {
			a.freeList = append(a.freeList[:i], a.freeList[i+1:]...)
			buf := a.region[blk.offset : blk.offset+n : blk.offset+n]
			clear(buf)
			a.used += n
			if a.used > a.peak {
				a.peak = a.used
			}
			return buf, nil
		}
	}

	if a.offset+n > len(a.region) {
		return nil, api.ErrAllocFailed
	}
	buf := a.region[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	a.used += n
	if a.used > a.peak {
		a.peak = a.used
	}
	return buf, nil
}

// Free returns buf to the arena's free list. buf must have been returned by
// Allocate on the same Arena and not already freed.
func (a *Arena) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	n := alignUp(len(buf))

	a.mu.Lock()
	defer a.mu.Unlock()

	offset := a.offsetOf(buf)
	a.freeList = append(a.freeList, freeBlock{offset: offset, size: n})
	a.used -= n
}

// offsetOf computes buf's byte offset within the arena via pointer
// arithmetic; buf is always a sub-slice of a.region.
func (a *Arena) offsetOf(buf []byte) int {
	base := uintptr(unsafe.Pointer(&a.region[0]))
	p := uintptr(unsafe.Pointer(&buf[0]))
	return int(p - base)
}

// AccountStruct records the conceptual footprint of a Go-managed struct
// (routing entries, dispatch tables, agent records) that cannot safely be
// placed inside the byte arena. It keeps the used/peak/total accounting
// contract truthful for callers that allocate such structs instead of byte
// buffers. See DESIGN.md for why these are not arena-placed.
func (a *Arena) AccountStruct(size int) {
	if size <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used += size
	if a.used > a.peak {
		a.peak = a.used
	}
}

// ReleaseStruct reverses AccountStruct.
func (a *Arena) ReleaseStruct(size int) {
	if size <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used -= size
}

// Stats is a point-in-time snapshot of arena usage.
type Stats struct {
	Used  int
	Peak  int
	Total int
}

// Stat returns the current usage snapshot.
func (a *Arena) Stat() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Used: a.used, Peak: a.peak, Total: a.total}
}
