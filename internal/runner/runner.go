// Package runner implements the Test Runner (C9): spec.md §4.8's
// top-level orchestration from a loaded TestPlan to a finished test
// result, wiring every other package's singletons together for the
// VUs they get injected into.
//
// Grounded on internal/performance/v2/engine/engine.go's Engine (Run/
// Stop/initializeScenarios/evaluateThresholds shape), generalized from
// a map-of-concurrent-scenario-runners model to SPEC_FULL.md's
// sequential-LoadPhase model: phases run one after another, each
// driving every scenario through internal/pattern, rather than one
// executor per scenario run for the whole test.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vustorm/vustorm/internal/data"
	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/hook"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/pattern"
	"github.com/vustorm/vustorm/internal/rendezvous"
	"github.com/vustorm/vustorm/internal/sink"
	"github.com/vustorm/vustorm/internal/step"
	"github.com/vustorm/vustorm/internal/template"
	"github.com/vustorm/vustorm/internal/testplan"
	"github.com/vustorm/vustorm/internal/vu"
	"github.com/vustorm/vustorm/pkg/handler"
)

// interPhasePause separates consecutive LoadPhases (spec.md §4.8 step
// 3 "pause between phases") so in-flight connections from the previous
// phase's VUs drain before the next phase's ramp begins.
const interPhasePause = 2 * time.Second

// defaultStopTimeout bounds Stop()'s wait for VUs to finish their
// current iteration (spec.md §4.8 "hard cap... after it elapses,
// remaining VUs are forcibly stopped").
const defaultStopTimeout = 10 * time.Second

// Config bundles everything needed to build a Runner for one TestPlan.
type Config struct {
	Plan      *testplan.TestPlan
	Collector metrics.CollectorConfig
	Log       *diag.Logger
}

// Result is the Runner's final report (spec.md §6), pairing the
// end-of-run Summary with threshold pass/fail detail.
type Result struct {
	PlanName   string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Summary    metrics.Summary
	Thresholds []ThresholdResult
	Passed     bool
	Err        error
}

// Runner drives one TestPlan end to end. Not reusable across runs: call
// Run at most once per instance.
type Runner struct {
	plan *testplan.TestPlan
	log  *diag.Logger

	registry   *data.Registry
	tmplEngine *template.Engine
	hooks      *hook.Engine
	collector  *metrics.Collector
	handlers   map[string]handler.StepHandler
	rendez     *rendezvous.Registry

	nextVUID atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds a Runner, constructing every process-scoped singleton
// (spec.md §9 "Singletons... constructed once by the Runner") and
// initializing handlers only for step types the plan actually uses
// (spec.md §4.8 step 1).
func New(cfg Config) (*Runner, error) {
	if cfg.Plan == nil {
		return nil, fmt.Errorf("runner: nil test plan")
	}
	log := cfg.Log
	if log == nil {
		log = diag.Default()
	}

	registry := data.NewRegistry()

	var seed *int64
	if cfg.Plan.Global.Faker.Seed != 0 {
		s := cfg.Plan.Global.Faker.Seed
		seed = &s
	}
	faker := template.NewFaker(template.FakerConfig{Locale: cfg.Plan.Global.Faker.Locale, Seed: seed})
	tmplEngine := template.New(registry, faker, log)

	rendez := rendezvous.NewRegistry()

	sinks, err := sink.Build(cfg.Plan.Outputs, log)
	if err != nil {
		return nil, fmt.Errorf("runner: building sinks: %w", err)
	}
	collector := metrics.NewCollector(cfg.Collector, sinks, log)

	handlers := buildHandlers(cfg.Plan, rendez, log)

	sharedExecutor := &step.Executor{
		Engine:    tmplEngine,
		Handlers:  handlers,
		Collector: collector,
		Log:       log,
	}
	hooks := hook.New(log, stepExecutorAdapter{executor: sharedExecutor})
	sharedExecutor.Hooks = hooks

	return &Runner{
		plan:       cfg.Plan,
		log:        log,
		registry:   registry,
		tmplEngine: tmplEngine,
		hooks:      hooks,
		collector:  collector,
		handlers:   handlers,
		rendez:     rendez,
	}, nil
}

// stepExecutorAdapter satisfies internal/hook.StepRunner over a shared
// *internal/step.Executor, letting `steps`-kind hooks dispatch through
// the same nine-stage pipeline ordinary scenario steps use.
type stepExecutorAdapter struct{ executor *step.Executor }

func (a stepExecutorAdapter) Execute(ctx context.Context, s testplan.Step, tctx *template.Context, scenarioName string) (bool, error) {
	result := a.executor.Execute(ctx, s, tctx, scenarioName)
	if result.Skipped {
		return true, nil
	}
	return result.Success, result.Error
}

// buildHandlers registers one StepHandler per step type actually
// present in the plan's scenarios (including steps nested inside
// `steps`-kind hooks), skipping types with no reference implementation.
func buildHandlers(plan *testplan.TestPlan, rendez *rendezvous.Registry, log *diag.Logger) map[string]handler.StepHandler {
	types := stepTypesIn(plan)
	handlers := make(map[string]handler.StepHandler, len(types))

	for t := range types {
		switch t {
		case "rest":
			handlers["rest"] = handler.NewRestHandler(plan.Global.BaseURL, plan.Global.Headers, plan.Global.Timeout.Duration())
		case "wait":
			handlers["wait"] = handler.NewWaitHandler(rendez)
		default:
			log.Warn("runner: step type %q has no reference handler implementation; steps of this type will fail to dispatch", t)
		}
	}
	return handlers
}

func stepTypesIn(plan *testplan.TestPlan) map[string]struct{} {
	types := make(map[string]struct{})
	var visit func(steps []testplan.Step)
	visit = func(steps []testplan.Step) {
		for _, s := range steps {
			types[s.Type] = struct{}{}
			for _, h := range []*testplan.Hook{s.Hooks.BeforeStep, s.Hooks.OnStepError, s.Hooks.TeardownStep} {
				if h != nil && h.Kind == "steps" {
					visit(h.Steps)
				}
			}
		}
	}
	for _, sc := range plan.Scenarios {
		visit(sc.Steps)
		for _, h := range []*testplan.Hook{sc.Hooks.BeforeVU, sc.Hooks.TeardownVU, sc.Hooks.BeforeScenario, sc.Hooks.TeardownScenario, sc.Hooks.BeforeLoop, sc.Hooks.AfterLoop} {
			if h != nil && h.Kind == "steps" {
				visit(h.Steps)
			}
		}
	}
	return types
}

// Run executes every LoadPhase in order and returns the final Result
// (spec.md §4.8). It blocks until every phase completes, ctx is
// cancelled, or Stop is called.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, fmt.Errorf("runner: already running")
	}
	r.running = true
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	start := time.Now()

	// 2. Reset the Rendezvous registry.
	r.rendez.Reset()

	if err := r.collector.Start(runCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("runner: starting collector: %w", err)
	}

	var runErr error
	for i, phase := range r.plan.Load {
		if runCtx.Err() != nil {
			runErr = runCtx.Err()
			break
		}
		r.log.Info("runner: phase %d/%d (%s) starting", i+1, len(r.plan.Load), phase.Pattern)

		strategy := pattern.For(phase.Pattern)
		if err := strategy.Run(runCtx, phase, r.vuFactory(), r.collector, r.log); err != nil {
			r.log.Warn("runner: phase %d error: %v", i+1, err)
			runErr = err
		}

		if i < len(r.plan.Load)-1 && runCtx.Err() == nil {
			select {
			case <-time.After(interPhasePause):
			case <-runCtx.Done():
			}
		}
	}

	r.collector.Finalize()
	summary := r.collector.GetSummary()
	thresholds := evaluateThresholds(r.plan.Thresholds, summary)

	cancel()

	result := &Result{
		PlanName:   r.plan.Name,
		StartTime:  start,
		EndTime:    time.Now(),
		Duration:   time.Since(start),
		Summary:    summary,
		Thresholds: thresholds,
		Passed:     allPassed(thresholds),
		Err:        runErr,
	}
	return result, runErr
}

// vuFactory closes over this Runner's singletons and an
// ID-assignment counter to build internal/pattern.Factory.
func (r *Runner) vuFactory() pattern.Factory {
	return func() *vu.VirtualUser {
		id := int(r.nextVUID.Add(1))
		return vu.New(vu.Config{
			ID:             id,
			Scenarios:      r.plan.Scenarios,
			Global:         r.plan.Global,
			DataRegistry:   r.registry,
			TemplateEngine: r.tmplEngine,
			Hooks:          r.hooks,
			Collector:      r.collector,
			Handlers:       r.handlers,
			Log:            r.log.With(fmt.Sprintf("vu=%d", id)),
		})
	}
}

// Stop requests cancellation of the in-flight run, then waits until Run
// has returned (its VUs stopped and the collector finalized), for at most
// defaultStopTimeout or until ctx is done. The per-VU shutdown inside Run
// is the pattern's stopAll, bounded by each phase's GracefulStop.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	deadline := time.After(defaultStopTimeout)
	for {
		r.mu.Lock()
		running := r.running
		r.mu.Unlock()
		if !running {
			return
		}
		select {
		case <-deadline:
			return
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
