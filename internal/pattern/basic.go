package pattern

import (
	"context"
	"time"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/testplan"
)

// Basic ramps VUs up linearly, one at a time, spaced rampUp/users apart,
// then holds the full VU count until the phase's duration elapses or
// the run is cancelled (spec.md §4.7 "Basic").
//
// Grounded on internal/performance/v2/executor/constant_vus.go's
// spawn-then-hold shape, generalized to add the ramp-up spacing
// ramping_vus.go uses for smooth scaling.
type Basic struct{}

func (b *Basic) Run(ctx context.Context, phase testplan.LoadPhase, factory Factory, collector *metrics.Collector, log *diag.Logger) error {
	if log == nil {
		log = diag.Default()
	}
	p := newPool()

	users := phase.Users
	if users <= 0 {
		users = 1
	}

	rampCtx, cancelRamp := context.WithCancel(ctx)
	defer cancelRamp()

	spacing := time.Duration(0)
	if phase.RampUp.Duration() > 0 && users > 0 {
		spacing = phase.RampUp.Duration() / time.Duration(users)
	}

	rampDone := make(chan struct{})
	go func() {
		defer close(rampDone)
		for i := 0; i < users; i++ {
			select {
			case <-rampCtx.Done():
				return
			default:
			}
			p.spawn(ctx, factory, collector, log, nil)
			if i < users-1 && spacing > 0 {
				select {
				case <-rampCtx.Done():
					return
				case <-time.After(spacing):
				}
			}
		}
	}()

	holdFor := phase.Duration.Duration()
	if holdFor <= 0 {
		// No duration means hold until the parent context (test
		// cancellation) ends the phase.
		<-ctx.Done()
	} else {
		timer := time.NewTimer(holdFor)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	cancelRamp()
	<-rampDone

	p.stopAll(ctx, phase.GracefulStop.Duration())
	return nil
}
