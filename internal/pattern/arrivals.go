package pattern

import (
	"context"
	"time"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/testplan"
)

// Arrivals implements the open arrival-rate model: new VUs are created
// on an arithmetic schedule (next = last + 1000/rate ms), each running
// until it self-terminates after vu_duration. The phase completes once
// its Duration has elapsed AND every spawned VU has finished (spec.md
// §4.7 "Arrivals").
//
// Grounded on internal/performance/v2/rate/leaky_bucket.go's pacing
// model, adapted from pacing *iterations* within one VU to pacing VU
// *creation* — an open model needs an unbounded VU pool, not a fixed
// one, so there is no single VU whose Next() gates every iteration.
type Arrivals struct{}

func (a *Arrivals) Run(ctx context.Context, phase testplan.LoadPhase, factory Factory, collector *metrics.Collector, log *diag.Logger) error {
	if log == nil {
		log = diag.Default()
	}
	p := newPool()

	rate := phase.Rate
	if rate <= 0 {
		rate = 1
	}
	intervalMS := 1000.0 / rate

	vuLifetime := phase.VUDuration.Duration()
	phaseDuration := phase.Duration.Duration()

	spawnCtx, cancelSpawn := context.WithCancel(ctx)
	if phaseDuration > 0 {
		var cancelTimeout context.CancelFunc
		spawnCtx, cancelTimeout = context.WithTimeout(spawnCtx, phaseDuration)
		defer cancelTimeout()
	}
	defer cancelSpawn()

	last := time.Now()
	spawnDone := make(chan struct{})
	go func() {
		defer close(spawnDone)
		for {
			select {
			case <-spawnCtx.Done():
				return
			default:
			}

			next := last.Add(time.Duration(intervalMS * float64(time.Millisecond)))
			if wait := time.Until(next); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-spawnCtx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			last = next

			vuCtx := ctx
			var release context.CancelFunc
			if vuLifetime > 0 {
				vuCtx, release = context.WithTimeout(ctx, vuLifetime)
			}
			p.spawn(vuCtx, factory, collector, log, release)
		}
	}()

	<-spawnDone

	// Duration has elapsed (or the run was cancelled); wait for every
	// spawned VU to finish on its own, bounded by the phase's graceful
	// stop budget in case some VU never self-terminates.
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	graceful := phase.GracefulStop.Duration()
	if graceful <= 0 {
		graceful = defaultGracefulStop
	}
	select {
	case <-done:
	case <-ctx.Done():
		p.stopAll(ctx, graceful)
	case <-time.After(graceful):
		p.stopAll(ctx, graceful)
	}

	return nil
}
