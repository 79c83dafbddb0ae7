package dispatch

import (
	"errors"
	"testing"

	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/mailbox"
	"github.com/momentics/signalrt/internal/signal"
)

func newArena(t *testing.T) *heap.Arena {
	t.Helper()
	a, err := heap.New(64 * 1024)
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}
	return a
}

func TestInvokeCallsMatchingHandler(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 4)
	called := false
	tbl.Register(7, func(state any, sig *api.Signal) error {
		called = true
		return nil
	}, nil)

	if err := tbl.Invoke(&api.Signal{Kind: 7}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !called {
		t.Fatalf("expected handler to be called")
	}
	if tbl.HitCount() != 1 || tbl.MissCount() != 0 {
		t.Fatalf("expected hit=1 miss=0, got hit=%d miss=%d", tbl.HitCount(), tbl.MissCount())
	}
}

func TestInvokeMissFallsBackToDefault(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 4)
	defaultCalled := false
	tbl.SetDefault(func(state any, sig *api.Signal) error {
		defaultCalled = true
		return nil
	})

	if err := tbl.Invoke(&api.Signal{Kind: 99}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !defaultCalled {
		t.Fatalf("expected default handler invoked on miss")
	}
	if tbl.MissCount() != 1 {
		t.Fatalf("expected miss count 1, got %d", tbl.MissCount())
	}
}

func TestInvokeNoHandlerNoDefault(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 4)
	if err := tbl.Invoke(&api.Signal{Kind: 1}); err != api.ErrNoHandler {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestInvokeGuardRejection(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 4)
	handlerCalled := false
	tbl.Register(7, func(state any, sig *api.Signal) error {
		handlerCalled = true
		return nil
	}, func(state any, sig *api.Signal) bool { return false })

	if err := tbl.Invoke(&api.Signal{Kind: 7}); err != api.ErrGuardFailed {
		t.Fatalf("expected ErrGuardFailed, got %v", err)
	}
	if handlerCalled {
		t.Fatalf("handler must not run when guard rejects")
	}
}

func TestInvokeHandlerFailure(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 4)
	tbl.Register(7, func(state any, sig *api.Signal) error {
		return errors.New("boom")
	}, nil)

	err := tbl.Invoke(&api.Signal{Kind: 7})
	var derr *api.Error
	if !errors.As(err, &derr) || derr.Code != api.ErrCodeHandlerFailed {
		t.Fatalf("expected handler-failed error, got %v", err)
	}
}

func TestRegisterCapacityExceeded(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 1)
	if err := tbl.Register(1, func(any, *api.Signal) error { return nil }, nil); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := tbl.Register(2, func(any, *api.Signal) error { return nil }, nil); err != api.ErrCapacityExceeded {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestUnregisterThenMiss(t *testing.T) {
	a := newArena(t)
	tbl := New(a, 1, 4)
	tbl.Register(7, func(any, *api.Signal) error { return nil }, nil)
	if err := tbl.Unregister(7); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := tbl.Invoke(&api.Signal{Kind: 7}); err != api.ErrNoHandler {
		t.Fatalf("expected ErrNoHandler after unregister, got %v", err)
	}
}

func TestProcessQueueDrainsAll(t *testing.T) {
	a := newArena(t)
	mb := mailbox.New(a, 1, 4)
	processedKinds := []uint16{}
	tbl := New(a, 1, 4)
	tbl.Register(7, func(state any, sig *api.Signal) error {
		processedKinds = append(processedKinds, sig.Kind)
		return nil
	}, nil)

	for i := 0; i < 3; i++ {
		sig, _ := signal.Create(a, 7, 0, nil)
		mb.Enqueue(sig)
		signal.Free(a, sig) // drop creator's own ref; mailbox still holds one
	}

	processed := ProcessQueue(tbl, a, mb)
	if processed != 3 {
		t.Fatalf("expected 3 processed, got %d", processed)
	}
	if len(processedKinds) != 3 {
		t.Fatalf("expected handler invoked 3 times, got %d", len(processedKinds))
	}
	if mb.Len() != 0 {
		t.Fatalf("expected mailbox drained, len=%d", mb.Len())
	}
}

func TestProcessBatchRespectsLimit(t *testing.T) {
	a := newArena(t)
	mb := mailbox.New(a, 1, 8)
	tbl := New(a, 1, 4)
	tbl.Register(7, func(any, *api.Signal) error { return nil }, nil)

	for i := 0; i < 5; i++ {
		sig, _ := signal.Create(a, 7, 0, nil)
		mb.Enqueue(sig)
		signal.Free(a, sig)
	}

	processed := ProcessBatch(tbl, a, mb, 2)
	if processed != 2 {
		t.Fatalf("expected 2 processed, got %d", processed)
	}
	if mb.Len() != 3 {
		t.Fatalf("expected 3 remaining, got %d", mb.Len())
	}
}
