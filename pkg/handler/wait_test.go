package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vustorm/vustorm/internal/rendezvous"
)

func TestWaitHandler_PlainSleep(t *testing.T) {
	h := NewWaitHandler(nil)
	start := time.Now()
	resp, err := h.Execute(context.Background(), Step{Payload: map[string]interface{}{"duration_ms": 20.0}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Error("Execute() Success = false, want true")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Execute() returned after %v, want at least 20ms", elapsed)
	}
}

func TestWaitHandler_SleepHonorsCancellation(t *testing.T) {
	h := NewWaitHandler(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	resp, err := h.Execute(ctx, Step{Payload: map[string]interface{}{"duration_ms": 5000.0}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("Execute() Success = true for a cancelled wait, want false")
	}
	if resp.Error == nil {
		t.Error("Execute() Error = nil, want context deadline error")
	}
}

func TestWaitHandler_RendezvousReleasesAtPartyCount(t *testing.T) {
	reg := rendezvous.NewRegistry()
	h := NewWaitHandler(reg)

	const parties = 3
	var wg sync.WaitGroup
	results := make([]bool, parties)
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := h.Execute(context.Background(), Step{
				Name: "sync-point",
				Payload: map[string]interface{}{
					"rendezvous": "checkpoint-a",
					"parties":    float64(parties),
				},
			})
			results[i] = err == nil && resp.Success
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("rendezvous wait did not release once all parties arrived")
	}

	for i, ok := range results {
		if !ok {
			t.Errorf("party %d did not succeed", i)
		}
	}
}

func TestWaitHandler_RendezvousWithoutRegistry(t *testing.T) {
	h := NewWaitHandler(nil)
	resp, err := h.Execute(context.Background(), Step{
		Name:    "sync-point",
		Payload: map[string]interface{}{"rendezvous": "checkpoint-b"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("Execute() Success = true with no registry configured, want false")
	}
}
