package pattern

import (
	"context"
	"time"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/testplan"
)

// Stepping runs a discrete staircase over phase.Steps: scale to each
// step's Users (spawning/stopping VUs, optionally spaced by the step's
// own RampUp), hold for the step's Duration, and move to the next step.
// VUs keep executing scenarios through every hold (spec.md §4.7
// "Stepping").
//
// Unlike internal/performance/v2/executor/ramping_vus.go's continuous
// linear interpolation between stages, this is a true staircase: no
// interpolation between step boundaries, matching spec.md's explicit
// "discrete steps, not smooth ramps" distinction from Basic.
type Stepping struct{}

func (s *Stepping) Run(ctx context.Context, phase testplan.LoadPhase, factory Factory, collector *metrics.Collector, log *diag.Logger) error {
	if log == nil {
		log = diag.Default()
	}
	p := newPool()

	for _, step := range phase.Steps {
		if ctx.Err() != nil {
			break
		}
		s.scaleTo(ctx, p, step, factory, collector, log)

		hold := step.Duration.Duration()
		if hold > 0 {
			timer := time.NewTimer(hold)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	p.stopAll(ctx, phase.GracefulStop.Duration())
	return nil
}

func (s *Stepping) scaleTo(ctx context.Context, p *pool, step testplan.PhaseStep, factory Factory, collector *metrics.Collector, log *diag.Logger) {
	target := step.Users
	if target < 0 {
		target = 0
	}
	current := p.size()

	if target < current {
		p.shrinkTo(ctx, target)
		return
	}

	toAdd := target - current
	if toAdd <= 0 {
		return
	}

	spacing := time.Duration(0)
	if step.RampUp.Duration() > 0 {
		spacing = step.RampUp.Duration() / time.Duration(toAdd)
	}

	for i := 0; i < toAdd; i++ {
		if ctx.Err() != nil {
			return
		}
		p.spawn(ctx, factory, collector, log, nil)
		if i < toAdd-1 && spacing > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(spacing):
			}
		}
	}
}
