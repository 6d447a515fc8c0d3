// Package vu implements the Virtual User (C7): the per-VU lifecycle
// that loads data rows, runs hooks, and drives scenarios/steps through
// the Template Engine and Step Executor.
//
// Grounded on internal/performance/v2/vu.go's VirtualUser (state,
// RunIteration, think-time application, stop/cleanup semantics),
// generalized from one fixed REST-only scenario to the full
// hook-driven, data-bound, multi-scenario lifecycle spec.md §4.5
// defines.
package vu

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vustorm/vustorm/internal/clock"
	"github.com/vustorm/vustorm/internal/data"
	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/hook"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/step"
	"github.com/vustorm/vustorm/internal/template"
	"github.com/vustorm/vustorm/internal/testplan"
	"github.com/vustorm/vustorm/pkg/handler"
)

// State mirrors internal/performance/v2/vu.go's VUState enum,
// generalized to the hook-driven lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Config bundles the process-scoped singletons and plan fragments one
// VU needs (spec.md §9 "Singletons... injected into VUs").
type Config struct {
	ID             int
	Scenarios      []testplan.Scenario
	Global         testplan.GlobalConfig
	DataRegistry   *data.Registry
	TemplateEngine *template.Engine
	Hooks          *hook.Engine
	Collector      *metrics.Collector
	Handlers       map[string]handler.StepHandler
	Log            *diag.Logger
}

// VirtualUser holds one VU's lifecycle state. Safe for its owning
// goroutine only; VUContext is never aliased across VUs (spec.md §5).
type VirtualUser struct {
	cfg    Config
	ctx    *template.Context
	active atomic.Bool
	state  atomic.Value // State

	executor *step.Executor

	beforeVUOnce sync.Once
	stopOnce     sync.Once
	stopped      chan struct{}
}

// New constructs a VU, idle until Run/ExecuteScenarios is called.
func New(cfg Config) *VirtualUser {
	if cfg.Log == nil {
		cfg.Log = diag.Default()
	}
	v := &VirtualUser{
		cfg: cfg,
		ctx: &template.Context{
			Variables: map[string]interface{}{},
			Extracted: map[string]interface{}{},
			VUID:      cfg.ID,
		},
		stopped: make(chan struct{}),
	}
	v.active.Store(true)
	v.state.Store(StateIdle)

	v.executor = &step.Executor{
		Engine:    cfg.TemplateEngine,
		Handlers:  cfg.Handlers,
		Collector: cfg.Collector,
		Hooks:     stepHookAdapter{hooks: cfg.Hooks},
		Log:       cfg.Log,
	}
	return v
}

// stepHookAdapter satisfies internal/step.HookRunner over *hook.Engine.
type stepHookAdapter struct{ hooks *hook.Engine }

func (a stepHookAdapter) RunStepHook(ctx context.Context, h *testplan.Hook, tctx *template.Context) (map[string]interface{}, error) {
	if a.hooks == nil {
		return nil, nil
	}
	return a.hooks.RunStepHook(ctx, h, tctx)
}

// ID returns the VU's assigned identifier.
func (v *VirtualUser) ID() int { return v.cfg.ID }

// IsActive reports whether the VU has not yet been asked to stop.
func (v *VirtualUser) IsActive() bool { return v.active.Load() }

// State returns the VU's current lifecycle state.
func (v *VirtualUser) State() State { return v.state.Load().(State) }

// RequestStop sets active=false; inner loops check IsActive between
// steps/scenarios and abort promptly (spec.md §4.5 "Cancellation").
func (v *VirtualUser) RequestStop() {
	v.active.Store(false)
}

// Stop requests a stop, runs teardownVU and handler VU cleanup, and
// returns only once cleanup finishes (spec.md §4.5).
func (v *VirtualUser) Stop(ctx context.Context) {
	v.stopOnce.Do(func() {
		v.RequestStop()
		v.state.Store(StateStopping)

		if h := v.vuHook(func(hs testplan.HookSet) *testplan.Hook { return hs.TeardownVU }); h != nil && v.cfg.Hooks != nil {
			vars, err := v.cfg.Hooks.RunStepHook(ctx, h, v.ctx)
			if err != nil {
				v.cfg.Log.Warn("vu %d: teardownVU hook failed: %v", v.cfg.ID, err)
			}
			mergeHookVariables(v.ctx, vars)
		}

		for _, h := range v.cfg.Handlers {
			if cleaner, ok := h.(handler.VUCleaner); ok {
				_ = cleaner.CleanupVU(v.cfg.ID)
			}
		}

		v.state.Store(StateStopped)
		close(v.stopped)
	})
}

// vuHook finds the first configured VU-scoped hook (beforeVU/teardownVU)
// across this VU's assigned scenarios. These hooks are scenario-schema
// fields (testplan.HookSet) but VU-scoped in meaning (spec.md §4.5 steps
// 2 and 5): they run once per VU, not once per scenario, so only the
// first match across the VU's scenario set is used.
func (v *VirtualUser) vuHook(pick func(testplan.HookSet) *testplan.Hook) *testplan.Hook {
	for _, s := range v.cfg.Scenarios {
		if h := pick(s.Hooks); h != nil {
			return h
		}
	}
	return nil
}

func mergeHookVariables(ctx *template.Context, vars map[string]interface{}) {
	if len(vars) == 0 {
		return
	}
	if ctx.Variables == nil {
		ctx.Variables = make(map[string]interface{}, len(vars))
	}
	for k, val := range vars {
		ctx.Variables[k] = val
	}
}

// Done returns a channel closed once Stop's cleanup completes.
func (v *VirtualUser) Done() <-chan struct{} { return v.stopped }

// ExecuteScenarios runs one pass of spec.md §4.5's lifecycle (steps
// 1-5). The load pattern calls this repeatedly until the phase's
// duration elapses or the cancel signal fires. terminated=true signals
// a graceful, data-exhaustion-driven VU stop (not an error).
func (v *VirtualUser) ExecuteScenarios(ctx context.Context) (terminated bool, err error) {
	v.state.Store(StateRunning)

	// 1. loadGlobalRow.
	if v.cfg.Global.CSVData != "" {
		row, ok, loadErr := v.loadRow(v.cfg.Global.CSVData, data.Mode(v.cfg.Global.CSVMode), data.Options{})
		if loadErr != nil || !ok {
			v.Stop(ctx)
			return true, nil
		}
		v.ctx.GlobalRow = row
		mergeRowIntoVariables(v.ctx, row)
	}

	// 2. beforeVU hook, run once per VU lifetime (not once per
	// ExecuteScenarios pass).
	v.beforeVUOnce.Do(func() {
		h := v.vuHook(func(hs testplan.HookSet) *testplan.Hook { return hs.BeforeVU })
		if h == nil || v.cfg.Hooks == nil {
			return
		}
		vars, hookErr := v.cfg.Hooks.RunStepHook(ctx, h, v.ctx)
		if hookErr != nil {
			v.cfg.Log.Warn("vu %d: beforeVU hook failed: %v", v.cfg.ID, hookErr)
		}
		mergeHookVariables(v.ctx, vars)
	})

	// 3. selectScenarios.
	selected := v.selectScenarios()

	for _, scenario := range selected {
		if !v.IsActive() {
			break
		}
		if scenErr := v.runScenario(ctx, scenario); scenErr != nil {
			v.cfg.Log.Warn("vu %d: scenario %q error: %v", v.cfg.ID, scenario.Name, scenErr)
		}
	}

	return false, nil
}

func (v *VirtualUser) loadRow(file string, mode data.Mode, opts data.Options) (map[string]string, bool, error) {
	provider, err := v.cfg.DataRegistry.Get(file, opts)
	if err != nil {
		return nil, false, err
	}
	return provider.RowFor(mode, v.cfg.ID)
}

func mergeRowIntoVariables(ctx *template.Context, row map[string]string) {
	for k, val := range row {
		ctx.Variables[k] = val
	}
}

// selectScenarios implements spec.md §4.5 step 3: each scenario
// included independently with probability weight/100; if the draw
// yields none, keep the first scenario. Order is preserved.
func (v *VirtualUser) selectScenarios() []testplan.Scenario {
	if len(v.cfg.Scenarios) == 0 {
		return nil
	}
	var selected []testplan.Scenario
	for _, s := range v.cfg.Scenarios {
		if rand.Intn(100) < s.WeightOrDefault() {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		selected = []testplan.Scenario{v.cfg.Scenarios[0]}
	}
	return selected
}

func (v *VirtualUser) runScenario(ctx context.Context, scenario testplan.Scenario) error {
	v.ctx.ScenarioName = scenario.Name
	for k, val := range scenario.Variables {
		v.ctx.Variables[k] = val
	}

	if scenario.DataBinding != nil {
		row, ok, err := v.loadRow(scenario.DataBinding.File, data.Mode(scenario.DataBinding.Mode), data.Options{
			Delimiter:         scenario.DataBinding.Delimiter,
			Columns:           scenario.DataBinding.Columns,
			CycleOnExhaustion: scenario.DataBinding.CycleOnExhaustion,
		})
		if err == nil && ok {
			v.ctx.CSVRow = row
			mergeRowIntoVariables(v.ctx, row)
		}
	}

	if v.cfg.Hooks != nil {
		if _, err := v.cfg.Hooks.RunStepHook(ctx, scenario.Hooks.BeforeScenario, v.ctx); err != nil {
			v.cfg.Log.Warn("vu %d: beforeScenario hook failed: %v", v.cfg.ID, err)
		}
	}

	loop := scenario.LoopOrDefault()
	for iter := 0; iter < loop; iter++ {
		if !v.IsActive() {
			break
		}
		v.ctx.Iteration = iter

		if v.cfg.Hooks != nil {
			if _, err := v.cfg.Hooks.RunStepHook(ctx, scenario.Hooks.BeforeLoop, v.ctx); err != nil {
				v.cfg.Log.Warn("vu %d: beforeLoop hook failed: %v", v.cfg.ID, err)
			}
		}

		if scenario.DataBinding != nil && data.Mode(scenario.DataBinding.Mode) == data.ModeUnique && iter > 0 {
			if row, ok, err := v.loadRow(scenario.DataBinding.File, data.ModeUnique, data.Options{
				Delimiter: scenario.DataBinding.Delimiter, Columns: scenario.DataBinding.Columns,
				CycleOnExhaustion: scenario.DataBinding.CycleOnExhaustion,
			}); err == nil && ok {
				v.ctx.CSVRow = row
				mergeRowIntoVariables(v.ctx, row)
			}
		}

		v.runSteps(ctx, scenario)

		if v.cfg.Hooks != nil {
			if _, err := v.cfg.Hooks.RunStepHook(ctx, scenario.Hooks.AfterLoop, v.ctx); err != nil {
				v.cfg.Log.Warn("vu %d: afterLoop hook failed: %v", v.cfg.ID, err)
			}
		}

		if iter < loop-1 && v.IsActive() {
			v.applyThinkTime(ctx, "", scenario.ThinkTime, v.cfg.Global.ThinkTime)
		}
	}

	if v.cfg.Hooks != nil {
		if _, err := v.cfg.Hooks.RunStepHook(ctx, scenario.Hooks.TeardownScenario, v.ctx); err != nil {
			v.cfg.Log.Warn("vu %d: teardownScenario hook failed: %v", v.cfg.ID, err)
		}
	}
	return nil
}

func (v *VirtualUser) runSteps(ctx context.Context, scenario testplan.Scenario) {
	for i, s := range scenario.Steps {
		if !v.IsActive() {
			return
		}
		result := v.executor.Execute(ctx, s, v.ctx, scenario.Name)
		if !result.Success && !s.ContinueOnErrorOrDefault() {
			v.cfg.Log.Warn("vu %d: step %q failed, aborting scenario %q: %v", v.cfg.ID, s.Name, scenario.Name, result.Error)
			return
		}

		if i == len(scenario.Steps)-1 {
			continue
		}
		next := scenario.Steps[i+1]
		if isVerificationStep(next.Name) {
			continue
		}
		v.applyThinkTime(ctx, s.ThinkTime, scenario.ThinkTime, v.cfg.Global.ThinkTime)
	}
}

var verificationPrefixes = []string{"verify_", "wait_for_", "measure_web_vitals", "performance_audit"}

func isVerificationStep(name string) bool {
	for _, prefix := range verificationPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// applyThinkTime sleeps for the effective think-time: step overrides
// scenario overrides global (spec.md §4.5, §8 property 7).
func (v *VirtualUser) applyThinkTime(ctx context.Context, stepTT, scenarioTT, globalTT string) {
	d, ok := clock.EffectiveThinkTime(stepTT, scenarioTT, globalTT)
	if !ok {
		v.cfg.Log.Warn("vu %d: think-time spec failed to parse, using fallback", v.cfg.ID)
	}
	_ = clock.Sleep(ctx, d)
}
