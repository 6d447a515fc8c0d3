package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/vustorm/vustorm/internal/rendezvous"
)

// WaitHandler implements `type: wait` steps: either a plain sleep, or,
// when the payload names a rendezvous point, a named barrier wait
// (spec.md §3 "Rendezvous" / suspension point iii).
//
// Grounded on internal/rendezvous.Barrier; this is the one StepHandler
// that reaches outside the protocol-handler contract into a Runner
// singleton, since a rendezvous wait is cross-VU coordination rather
// than per-VU I/O.
type WaitHandler struct {
	Rendezvous *rendezvous.Registry
}

func NewWaitHandler(registry *rendezvous.Registry) *WaitHandler {
	return &WaitHandler{Rendezvous: registry}
}

// Execute recognizes two payload shapes:
//   - {rendezvous: "<name>", parties: N} — wait for N VUs at the named
//     barrier.
//   - {duration_ms: N} (or nothing) — plain sleep.
func (h *WaitHandler) Execute(ctx context.Context, step Step) (Response, error) {
	start := time.Now()

	if name, ok := step.Payload["rendezvous"].(string); ok && name != "" {
		parties, _ := step.Payload["parties"].(float64)
		if parties <= 0 {
			parties = 1
		}
		if h.Rendezvous == nil {
			return Response{Success: false, Error: fmt.Errorf("wait step %q: no rendezvous registry configured", step.Name)}, nil
		}
		barrier := h.Rendezvous.Get(name, int(parties))
		err := barrier.Wait(ctx)
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0
		if err != nil {
			return Response{Success: false, DurationMS: elapsed, Error: err}, nil
		}
		return Response{Success: true, DurationMS: elapsed}, nil
	}

	durationMS, _ := step.Payload["duration_ms"].(float64)
	if durationMS <= 0 && step.TimeoutMS > 0 {
		durationMS = step.TimeoutMS
	}

	timer := time.NewTimer(time.Duration(durationMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Response{Success: false, DurationMS: float64(time.Since(start).Microseconds()) / 1000.0, Error: ctx.Err()}, nil
	case <-timer.C:
	}

	return Response{Success: true, DurationMS: float64(time.Since(start).Microseconds()) / 1000.0}, nil
}
