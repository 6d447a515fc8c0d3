package hook

import (
	"context"
	"testing"
	"time"

	"github.com/vustorm/vustorm/internal/template"
	"github.com/vustorm/vustorm/internal/testplan"
)

// stubStepRunner scripts success/failure per call, recording every step
// it was asked to run.
type stubStepRunner struct {
	success bool
	err     error
	calls   []string
}

func (s *stubStepRunner) Execute(ctx context.Context, st testplan.Step, tctx *template.Context, scenarioName string) (bool, error) {
	s.calls = append(s.calls, st.Name)
	return s.success, s.err
}

func newTctx() *template.Context {
	return &template.Context{Variables: map[string]interface{}{}, Extracted: map[string]interface{}{}}
}

func TestEngine_Run_NilHookIsNoop(t *testing.T) {
	e := New(nil, nil)
	outcome, err := e.Run(context.Background(), nil, newTctx())
	if err != nil {
		t.Fatalf("Run(nil) error = %v", err)
	}
	if outcome.Value != nil || outcome.Variables != nil {
		t.Errorf("Run(nil) = %+v, want zero Outcome", outcome)
	}
}

func TestEngine_Run_InlineSetsVariable(t *testing.T) {
	e := New(nil, nil)
	h := &testplan.Hook{Kind: "inline", Inline: `setVariable("token", "abc")`}

	outcome, err := e.Run(context.Background(), h, newTctx())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Variables["token"] != "abc" {
		t.Errorf("Variables[token] = %v, want abc", outcome.Variables["token"])
	}
}

func TestEngine_Run_InlineReadsExistingVariable(t *testing.T) {
	e := New(nil, nil)
	tctx := newTctx()
	tctx.Variables["base"] = 10.0
	h := &testplan.Hook{Kind: "inline", Inline: "base + 5"}

	outcome, err := e.Run(context.Background(), h, tctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Value != 15.0 {
		t.Errorf("Run() Value = %v, want 15", outcome.Value)
	}
}

func TestEngine_Run_UnknownKindErrors(t *testing.T) {
	e := New(nil, nil)
	h := &testplan.Hook{Kind: "bogus"}
	if _, err := e.Run(context.Background(), h, newTctx()); err == nil {
		t.Error("Run() with an unknown hook kind expected an error, got nil")
	}
}

func TestEngine_Run_StepsRunsEachStepInOrder(t *testing.T) {
	runner := &stubStepRunner{success: true}
	e := New(nil, runner)
	h := &testplan.Hook{Kind: "steps", Steps: []testplan.Step{{Name: "a"}, {Name: "b"}}}

	if _, err := e.Run(context.Background(), h, newTctx()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(runner.calls) != 2 || runner.calls[0] != "a" || runner.calls[1] != "b" {
		t.Errorf("calls = %v, want [a b]", runner.calls)
	}
}

func TestEngine_Run_StepsFailurePropagates(t *testing.T) {
	runner := &stubStepRunner{success: false}
	e := New(nil, runner)
	h := &testplan.Hook{Kind: "steps", Steps: []testplan.Step{{Name: "a"}}}

	if _, err := e.Run(context.Background(), h, newTctx()); err == nil {
		t.Error("Run() expected an error when a hook step fails, got nil")
	}
}

func TestEngine_Run_StepsWithoutRunnerErrors(t *testing.T) {
	e := New(nil, nil)
	h := &testplan.Hook{Kind: "steps", Steps: []testplan.Step{{Name: "a"}}}
	if _, err := e.Run(context.Background(), h, newTctx()); err == nil {
		t.Error("Run() with no StepRunner configured expected an error, got nil")
	}
}

func TestEngine_Run_TimeoutIsEnforced(t *testing.T) {
	runner := &stubStepRunner{success: true}
	e := New(nil, runner)
	h := &testplan.Hook{
		Kind:    "inline",
		Inline:  "sleep(50)",
		Timeout: testplan.Duration(5 * time.Millisecond),
	}

	start := time.Now()
	e.Run(context.Background(), h, newTctx())
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Run() took %v, hook timeout should have bounded it", elapsed)
	}
}

func TestEngine_RunStepHook_ReturnsVariablesOnly(t *testing.T) {
	e := New(nil, nil)
	h := &testplan.Hook{Kind: "inline", Inline: `setVariable("x", 1)`}

	vars, err := e.RunStepHook(context.Background(), h, newTctx())
	if err != nil {
		t.Fatalf("RunStepHook() error = %v", err)
	}
	if vars["x"] != 1.0 {
		t.Errorf("RunStepHook() vars = %v, want x=1", vars)
	}
}

func TestEngine_Run_InlineMultipleStatementsReturnsLast(t *testing.T) {
	e := New(nil, nil)
	h := &testplan.Hook{Kind: "inline", Inline: `setVariable("a", 1); setVariable("b", 2); b`}

	outcome, err := e.Run(context.Background(), h, newTctx())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Value != 2.0 {
		t.Errorf("Run() Value = %v, want 2 (last statement)", outcome.Value)
	}
	if outcome.Variables["a"] != 1.0 || outcome.Variables["b"] != 2.0 {
		t.Errorf("Variables = %v, want both a and b set", outcome.Variables)
	}
}

func TestEngine_Run_InlineBadExpressionErrors(t *testing.T) {
	e := New(nil, nil)
	h := &testplan.Hook{Kind: "inline", Inline: "1 / 0"}
	if _, err := e.Run(context.Background(), h, newTctx()); err == nil {
		t.Error("Run() expected an error for a division by zero, got nil")
	}
}

func TestHook_ContinueOnErrorOrDefault(t *testing.T) {
	var h *testplan.Hook
	if !h.ContinueOnErrorOrDefault() {
		t.Error("ContinueOnErrorOrDefault() on a nil hook = false, want true")
	}

	noOverride := &testplan.Hook{}
	if !noOverride.ContinueOnErrorOrDefault() {
		t.Error("ContinueOnErrorOrDefault() with no explicit flag = false, want true")
	}

	f := false
	explicit := &testplan.Hook{ContinueOnError: &f}
	if explicit.ContinueOnErrorOrDefault() {
		t.Error("ContinueOnErrorOrDefault() with explicit false = true, want false")
	}
}
