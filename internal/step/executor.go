// Package step implements the Step Executor (C6): the nine-stage
// pipeline spec.md §4.4 defines for taking one rendered Step from a
// VUContext to a StepResult, recording a Result into the Metrics
// Collector when the step is measurable.
//
// Grounded on internal/performance/v2/vu.go's executeRequest (skip
// check, render, dispatch, extract variables), generalized into the
// full nine-stage pipeline with retry/backoff, checks, and hooks.
package step

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vustorm/vustorm/internal/clock"
	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/errs"
	"github.com/vustorm/vustorm/internal/expr"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/template"
	"github.com/vustorm/vustorm/internal/testplan"
	"github.com/vustorm/vustorm/pkg/handler"
)

// Result is what Execute returns to its caller (the VU loop).
type Result struct {
	Skipped   bool
	Recorded  bool
	Success   bool
	Error     error
	Checks    []CheckOutcome
	MetricRow *metrics.Result
}

// HookRunner is the narrow slice of the Hook Engine the Step Executor
// needs for beforeStep/onStepError/teardownStep (spec.md §4.4 steps 2
// and 7). Defined here to avoid a step <-> hook import cycle, since the
// Hook Engine's `steps` kind runs Steps through this same Executor.
type HookRunner interface {
	RunStepHook(ctx context.Context, h *testplan.Hook, tctx *template.Context) (variables map[string]interface{}, err error)
}

// Executor runs Steps against registered protocol handlers.
type Executor struct {
	Engine     *template.Engine
	Handlers   map[string]handler.StepHandler
	Collector  *metrics.Collector
	Hooks      HookRunner
	Log        *diag.Logger
}

// Execute implements spec.md §4.4's nine stages in order.
func (e *Executor) Execute(ctx context.Context, s testplan.Step, tctx *template.Context, scenarioName string) Result {
	log := e.Log
	if log == nil {
		log = diag.Default()
	}

	// 1. Skip check.
	if s.Condition != "" {
		pass, err := expr.EvalBool(s.Condition, conditionVars(tctx), nil)
		if err != nil {
			log.Warn("step %q: condition %q failed to evaluate: %v", s.Name, s.Condition, err)
		} else if !pass {
			return Result{Skipped: true}
		}
	}

	// 2. beforeStep hook.
	if e.Hooks != nil && s.Hooks.BeforeStep != nil {
		vars, err := e.Hooks.RunStepHook(ctx, s.Hooks.BeforeStep, tctx)
		if err != nil && s.Hooks.BeforeStep.ContinueOnErrorOrDefault() {
			log.Warn("step %q: beforeStep hook failed: %v", s.Name, err)
		} else if err != nil {
			return Result{Success: false, Error: errs.Hook(err)}
		}
		mergeVariables(tctx, vars)
	}

	// 3. Render.
	rendered, err := renderPayload(e.Engine, s.Payload, tctx)
	if err != nil {
		return Result{Success: false, Error: err}
	}

	h, ok := e.Handlers[s.Type]
	if !ok {
		return Result{Success: false, Error: errs.Config("no handler registered for step type %q", s.Type)}
	}

	timeoutMS := float64(s.Timeout.Duration() / time.Millisecond)
	retry := s.Retry
	maxAttempts := retry.MaxAttemptsOrDefault()

	var resp handler.Response
	var attemptErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(retry, attempt)
			if sleepErr := clock.Sleep(ctx, delay); sleepErr != nil {
				attemptErr = sleepErr
				break
			}
		}

		hStep := handler.Step{Name: s.Name, Type: s.Type, Payload: rendered, TimeoutMS: timeoutMS}
		resp, attemptErr = h.Execute(ctx, hStep)
		if attemptErr == nil && resp.Success {
			break
		}
	}

	if attemptErr != nil {
		resp = handler.Response{Success: false, Error: attemptErr, DurationMS: 0}
	}

	// Effective timeout detection (spec.md §4.4, post step 4).
	if timeoutMS > 0 && resp.DurationMS >= 0.95*timeoutMS {
		resp.Success = false
		if resp.Error == nil {
			resp.Error = fmt.Errorf("step %q exceeded effective timeout (%.0fms of %.0fms configured)", s.Name, resp.DurationMS, timeoutMS)
		}
	}

	bodyText := string(resp.RawBody)
	status := 0
	if resp.Status != nil {
		status = *resp.Status
	}

	// 5. Checks.
	outcomes := runChecks(s.Checks, bodyText, status, resp.DurationMS)
	checksFailed := false
	for _, o := range outcomes {
		if !o.Passed {
			checksFailed = true
		}
	}
	success := resp.Success && !checksFailed
	var stepErr error
	if !success {
		if resp.Error != nil {
			stepErr = resp.Error
		} else {
			stepErr = errs.CheckFailed("step %q: one or more checks failed", s.Name)
		}
	}

	// 6. Extractions.
	runExtractions(s.Extract, bodyText, resp.RawHeaders, tctx.Extracted, log)

	// 7. teardownStep / onStepError hooks.
	if !success && e.Hooks != nil && s.Hooks.OnStepError != nil {
		vars, hookErr := e.Hooks.RunStepHook(ctx, s.Hooks.OnStepError, tctx)
		if hookErr != nil {
			log.Warn("step %q: onStepError hook failed: %v", s.Name, hookErr)
		}
		mergeVariables(tctx, vars)
	}
	if e.Hooks != nil && s.Hooks.TeardownStep != nil {
		vars, hookErr := e.Hooks.RunStepHook(ctx, s.Hooks.TeardownStep, tctx)
		if hookErr != nil {
			log.Warn("step %q: teardownStep hook failed: %v", s.Name, hookErr)
		}
		mergeVariables(tctx, vars)
	}

	result := Result{Success: success, Error: stepErr, Checks: outcomes}

	// 8. Record.
	if isMeasurable(s.Type, rendered) {
		row := &metrics.Result{
			ID:         uuid.NewString(),
			VUID:       tctx.VUID,
			Iteration:  tctx.Iteration,
			Scenario:   scenarioName,
			StepName:   s.Name,
			Timestamp:  time.Now().UnixNano(),
			Time:       time.Now(),
			DurationMS: resp.DurationMS,
			Success:    success,
		}
		if resp.Status != nil {
			row.Status = resp.Status
		}
		if resp.BytesSent != nil {
			row.BytesSent = resp.BytesSent
		}
		if resp.BytesReceived != nil {
			row.BytesReceived = resp.BytesReceived
		}
		if resp.LatencyMS != nil {
			row.LatencyFirstByte = resp.LatencyMS
		}
		if resp.ConnectTimeMS != nil {
			row.ConnectTimeMS = resp.ConnectTimeMS
		}
		if stepErr != nil {
			row.Error = stepErr.Error()
			row.ErrorKind = errorKindOf(stepErr)
		}
		result.MetricRow = row
		result.Recorded = true
		if e.Collector != nil {
			e.Collector.RecordResult(*row)
		}
	}

	return result
}

func conditionVars(tctx *template.Context) map[string]interface{} {
	merged := make(map[string]interface{}, len(tctx.Variables)+len(tctx.Extracted)+2)
	for k, v := range tctx.Variables {
		merged[k] = v
	}
	for k, v := range tctx.Extracted {
		merged[k] = v
	}
	merged["vu_id"] = tctx.VUID
	merged["iteration"] = tctx.Iteration
	return merged
}

func mergeVariables(tctx *template.Context, vars map[string]interface{}) {
	if len(vars) == 0 {
		return
	}
	if tctx.Variables == nil {
		tctx.Variables = make(map[string]interface{}, len(vars))
	}
	for k, v := range vars {
		tctx.Variables[k] = v
	}
}

func backoffDelay(retry *testplan.RetryConfig, attempt int) time.Duration {
	if retry == nil {
		return 0
	}
	base := retry.Delay.Duration()
	if retry.Backoff == "exponential" {
		return base * time.Duration(math.Pow(2, float64(attempt-1)))
	}
	return base * time.Duration(attempt)
}

// isMeasurable implements spec.md §4.4 step 8: rest/soap/wait/custom
// steps always measure; web steps measure only for navigation,
// verification, and explicit-measurement commands.
func isMeasurable(stepType string, payload map[string]interface{}) bool {
	switch stepType {
	case "rest", "soap", "wait", "custom":
		return true
	case "web":
		command, _ := payload["command"].(string)
		switch command {
		case "navigate", "verify", "measure", "measure_web_vitals", "performance_audit":
			return true
		default:
			if measured, ok := payload["measure"].(bool); ok {
				return measured
			}
			return false
		}
	default:
		return true
	}
}

func errorKindOf(err error) string {
	var e *errs.Error
	if as, ok := err.(*errs.Error); ok {
		e = as
	}
	if e != nil && e.Kind == errs.KindHandler {
		return e.Sub
	}
	return string(errs.HandlerUnknown)
}
