// Package pattern implements the Load Pattern Engine (C8): the three
// load-generation strategies spec.md §4.7 defines over a LoadPhase,
// driving internal/vu.VirtualUser lifecycles.
//
// Grounded on internal/performance/v2/executor's Executor interface
// shape (Init/Run/Stop/GetActiveVUs), generalized from four VU-iteration
// executors down to the three patterns SPEC_FULL.md names: each pattern
// controls VU *creation*/*count*, not iteration pacing — iteration
// pacing is the VU's own think-time loop (internal/vu).
package pattern

import (
	"context"
	"sync"
	"time"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/testplan"
	"github.com/vustorm/vustorm/internal/vu"
)

// defaultGracefulStop mirrors internal/performance/v2/executor's 30s
// default, trimmed to spec.md §4.8's 10s hard cap for the whole Runner;
// a single phase gets a slice of that budget.
const defaultGracefulStop = 10 * time.Second

// Factory constructs the next VirtualUser, assigning it a unique,
// monotonically increasing ID. The Runner closes over Scenarios/Global/
// singletons when building this.
type Factory func() *vu.VirtualUser

// Pattern is one load-generation strategy. Run blocks until the phase's
// duration elapses, ctx is cancelled, or (Arrivals) every spawned VU has
// finished.
type Pattern interface {
	Run(ctx context.Context, phase testplan.LoadPhase, factory Factory, collector *metrics.Collector, log *diag.Logger) error
}

// For selects the Pattern implementation for phase.Pattern.
func For(p testplan.Pattern) Pattern {
	switch p {
	case testplan.PatternStepping:
		return &Stepping{}
	case testplan.PatternArrivals:
		return &Arrivals{}
	default:
		return &Basic{}
	}
}

// pool tracks the set of currently-running VUs so a pattern can scale
// up/down and request a graceful stop, mirroring
// internal/performance/v2/executor/ramping_vus.go's vus/vusMu/wg idiom.
type pool struct {
	mu  sync.Mutex
	vus []*vu.VirtualUser
	wg  sync.WaitGroup
}

func newPool() *pool { return &pool{} }

// spawn starts one VU's execute-scenarios loop in its own goroutine,
// looping ExecuteScenarios until the VU is stopped or ctx is cancelled.
// If release is non-nil it runs once the loop returns, releasing any
// per-VU context the caller derived (e.g. Arrivals' vu_duration timeout).
func (p *pool) spawn(ctx context.Context, factory Factory, collector *metrics.Collector, log *diag.Logger, release context.CancelFunc) *vu.VirtualUser {
	v := factory()
	if collector != nil {
		collector.RecordVUStart(vuIDOf(v))
	}

	p.mu.Lock()
	p.vus = append(p.vus, v)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if release != nil {
			defer release()
		}
		runVULoop(ctx, v, log)
	}()
	return v
}

// runVULoop repeatedly runs one pass of the VU lifecycle until the VU
// is stopped, data-exhaustion terminates it, or ctx is cancelled.
func runVULoop(ctx context.Context, v *vu.VirtualUser, log *diag.Logger) {
	for v.IsActive() {
		select {
		case <-ctx.Done():
			v.Stop(ctx)
			return
		default:
		}

		terminated, err := v.ExecuteScenarios(ctx)
		if err != nil {
			log.Warn("vu: scenario execution error: %v", err)
		}
		if terminated {
			return
		}
	}
	v.Stop(ctx)
}

// current returns a snapshot of the live VU slice.
func (p *pool) current() []*vu.VirtualUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*vu.VirtualUser, len(p.vus))
	copy(out, p.vus)
	return out
}

func (p *pool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.vus)
}

// shrinkTo stops VUs from the end of the slice until len(vus) == target.
func (p *pool) shrinkTo(ctx context.Context, target int) {
	p.mu.Lock()
	var toStop []*vu.VirtualUser
	for len(p.vus) > target {
		last := p.vus[len(p.vus)-1]
		p.vus = p.vus[:len(p.vus)-1]
		toStop = append(toStop, last)
	}
	p.mu.Unlock()

	for _, v := range toStop {
		v.RequestStop()
	}
}

// stopAll requests every VU to stop and waits up to graceful for their
// loops to return (spec.md §4.8 "hard cap").
func (p *pool) stopAll(ctx context.Context, graceful time.Duration) {
	for _, v := range p.current() {
		v.RequestStop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if graceful <= 0 {
		graceful = defaultGracefulStop
	}
	select {
	case <-done:
	case <-time.After(graceful):
	}
}

// vuIDOf reads back the VU's ID for vu_ramp_up bookkeeping.
func vuIDOf(v *vu.VirtualUser) int {
	return v.ID()
}
