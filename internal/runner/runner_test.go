package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/testplan"
)

func TestRunner_Run_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	plan := &testplan.TestPlan{
		Name: "smoke",
		Global: testplan.GlobalConfig{
			BaseURL: srv.URL,
			Timeout: testplan.Duration(2 * time.Second),
		},
		Scenarios: []testplan.Scenario{
			{
				Name:   "ping",
				Weight: 100,
				Loop:   1,
				Steps: []testplan.Step{
					{Name: "get_root", Type: "rest", Payload: map[string]interface{}{"method": "GET", "path": "/"}},
				},
			},
		},
		Load: []testplan.LoadPhase{
			{Pattern: testplan.PatternBasic, Users: 2, Duration: testplan.Duration(40 * time.Millisecond)},
		},
	}

	r, err := New(Config{Plan: plan})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Err != nil {
		t.Errorf("Result.Err = %v, want nil", result.Err)
	}
	if result.Summary.TotalRequests == 0 {
		t.Error("Summary.TotalRequests = 0, want at least one recorded request")
	}
	if !result.Passed {
		t.Errorf("Result.Passed = false with no thresholds configured, want true")
	}
	if result.PlanName != "smoke" {
		t.Errorf("PlanName = %q, want smoke", result.PlanName)
	}
}

func TestRunner_New_NilPlanErrors(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() with a nil plan expected an error, got nil")
	}
}

func TestRunner_Run_RejectsConcurrentRuns(t *testing.T) {
	plan := &testplan.TestPlan{
		Name: "concurrent",
		Load: []testplan.LoadPhase{
			{Pattern: testplan.PatternBasic, Users: 1, Duration: testplan.Duration(60 * time.Millisecond)},
		},
	}
	r, err := New(Config{Plan: plan})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)

	if _, err := r.Run(context.Background()); err == nil {
		t.Error("Run() while already running expected an error, got nil")
	}
	<-done
}

func TestStepTypesIn_CollectsNestedHookSteps(t *testing.T) {
	plan := &testplan.TestPlan{
		Scenarios: []testplan.Scenario{
			{
				Steps: []testplan.Step{
					{
						Name: "outer",
						Type: "rest",
						Hooks: testplan.StepHooks{
							OnStepError: &testplan.Hook{Kind: "steps", Steps: []testplan.Step{
								{Name: "cleanup", Type: "wait"},
							}},
						},
					},
				},
			},
		},
	}

	types := stepTypesIn(plan)
	if _, ok := types["rest"]; !ok {
		t.Error("stepTypesIn() missing top-level rest step type")
	}
	if _, ok := types["wait"]; !ok {
		t.Error("stepTypesIn() missing wait step type nested inside an onStepError hook")
	}
}

func TestBuildHandlers_OnlyKnownTypesGetHandlers(t *testing.T) {
	plan := &testplan.TestPlan{
		Scenarios: []testplan.Scenario{
			{Steps: []testplan.Step{
				{Name: "a", Type: "rest"},
				{Name: "b", Type: "wait"},
				{Name: "c", Type: "unsupported_custom_type"},
			}},
		},
	}

	handlers := buildHandlers(plan, nil, diag.Default())
	if _, ok := handlers["rest"]; !ok {
		t.Error("buildHandlers() missing rest handler")
	}
	if _, ok := handlers["wait"]; !ok {
		t.Error("buildHandlers() missing wait handler")
	}
	if _, ok := handlers["unsupported_custom_type"]; ok {
		t.Error("buildHandlers() built a handler for an unrecognized step type")
	}
	if len(handlers) != 2 {
		t.Errorf("buildHandlers() returned %d handlers, want 2", len(handlers))
	}
}

func TestAllPassed_UsedByRunnerResult(t *testing.T) {
	if !allPassed([]ThresholdResult{}) {
		t.Error("allPassed() on an empty slice should be true")
	}
}
