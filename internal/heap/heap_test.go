package heap

import (
	"testing"

	"github.com/momentics/signalrt/api"
)

func TestAllocateZeroed(t *testing.T) {
	a, err := New(64 * 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf, err := a.Allocate(32)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("expected zeroed block, got %v", buf)
		}
	}
	if len(buf) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(buf))
	}
}

func TestAllocateFreeRoundTrip(t *testing.T) {
	a, err := New(64 * 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := a.Stat().Used

	buf, err := a.Allocate(128)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	a.Free(buf)

	after := a.Stat().Used
	if after != before {
		t.Fatalf("used did not return to prior value: before=%d after=%d", before, after)
	}
}

func TestAllocateReusesFreedBlock(t *testing.T) {
	a, err := New(64 * 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf1, _ := a.Allocate(64)
	a.Free(buf1)
	watermarkBefore := a.offset

	buf2, err := a.Allocate(64)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if a.offset != watermarkBefore {
		t.Fatalf("expected bump pointer to stay put when reusing a free block")
	}
	if len(buf2) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(buf2))
	}
}

func TestAllocateOutOfMemory(t *testing.T) {
	a, err := New(4096)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Allocate(8192); err != api.ErrAllocFailed {
		t.Fatalf("expected ErrAllocFailed, got %v", err)
	}
}

func TestStatInvariant(t *testing.T) {
	a, err := New(64 * 1024)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := a.Allocate(256); err != nil {
			t.Fatalf("Allocate: %v", err)
		}
	}
	s := a.Stat()
	if !(s.Used <= s.Peak && s.Peak <= s.Total) {
		t.Fatalf("heap accounting invariant violated: %+v", s)
	}
}
