package rendezvous

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBarrier_ReleasesAllAtPartyCount(t *testing.T) {
	b := newBarrier(4)
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.Wait(context.Background())
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("barrier never released all 4 parties")
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("party %d Wait() error = %v", i, err)
		}
	}
}

func TestBarrier_CancellationReturnsContextError(t *testing.T) {
	b := newBarrier(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() on a cancelled context = %v, want context.Canceled", err)
	}
}

func TestBarrier_ReusableAfterRelease(t *testing.T) {
	b := newBarrier(2)
	var wg sync.WaitGroup
	for round := 0; round < 2; round++ {
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				if err := b.Wait(context.Background()); err != nil {
					t.Errorf("Wait() error = %v", err)
				}
			}()
		}
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("barrier did not complete two rounds")
	}
}

func TestRegistry_GetReusesSameBarrierByName(t *testing.T) {
	reg := NewRegistry()
	b1 := reg.Get("checkpoint", 3)
	b2 := reg.Get("checkpoint", 99)
	if b1 != b2 {
		t.Error("Registry.Get() returned distinct Barriers for the same name")
	}
	if b2.n != 3 {
		t.Errorf("second Get() changed party count to %d, want original 3", b2.n)
	}
}

func TestRegistry_ResetDropsExistingBarriers(t *testing.T) {
	reg := NewRegistry()
	b1 := reg.Get("checkpoint", 2)
	reg.Reset()
	b2 := reg.Get("checkpoint", 2)
	if b1 == b2 {
		t.Error("Reset() should hand out a fresh Barrier for a reused name")
	}
}
