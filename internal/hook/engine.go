// Package hook implements the Hook Engine (C10): inline/file/steps
// lifecycle hooks with variable-merge semantics (spec.md §4.6).
//
// Grounded on internal/performance/v2/vu.go's hook-point call sites
// (beforeVU/afterVU-equivalent comments), generalized into the three
// hook kinds. Inline scripting uses internal/expr's small declarative
// evaluator rather than a general-purpose embedded interpreter — see
// DESIGN.md's Open Question decision.
package hook

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/errs"
	"github.com/vustorm/vustorm/internal/expr"
	"github.com/vustorm/vustorm/internal/template"
	"github.com/vustorm/vustorm/internal/testplan"
)

const defaultHookTimeout = 30 * time.Second

// StepRunner is the narrow slice of the Step Executor the Hook Engine
// needs for the `steps` hook kind: run one step, report whether it
// succeeded. internal/runner wires an adapter over
// *internal/step.Executor so neither package imports the other
// directly (internal/step only depends on its own HookRunner interface,
// which *Engine satisfies through RunStepHook).
type StepRunner interface {
	Execute(ctx context.Context, s testplan.Step, tctx *template.Context, scenarioName string) (success bool, err error)
}

// Engine evaluates hooks, reading/writing a VU's template.Context.
type Engine struct {
	Log   *diag.Logger
	Steps StepRunner
}

func New(log *diag.Logger, steps StepRunner) *Engine {
	if log == nil {
		log = diag.Default()
	}
	return &Engine{Log: log, Steps: steps}
}

// Outcome is a hook's `{value, variables?}` return per spec.md §4.6.
type Outcome struct {
	Value     interface{}
	Variables map[string]interface{}
}

// Run dispatches to the hook's kind. On failure, if continueOnError is
// not explicitly false, the caller should log and proceed (this
// function always returns the error; callers apply that policy, since
// the policy also interacts with which caller-scope gets aborted).
func (e *Engine) Run(ctx context.Context, h *testplan.Hook, tctx *template.Context) (Outcome, error) {
	if h == nil {
		return Outcome{}, nil
	}

	timeout := h.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch h.Kind {
	case "inline":
		return e.runInline(hctx, h.Inline, tctx)
	case "file":
		return e.runFile(hctx, h.File, tctx)
	case "steps":
		return e.runSteps(hctx, h.Steps, tctx)
	default:
		return Outcome{}, errs.Hook(fmt.Errorf("unknown hook kind %q", h.Kind))
	}
}

// RunStepHook adapts Run to the step.HookRunner contract step.Executor
// expects (value discarded; only resulting variables matter there).
func (e *Engine) RunStepHook(ctx context.Context, h *testplan.Hook, tctx *template.Context) (map[string]interface{}, error) {
	outcome, err := e.Run(ctx, h, tctx)
	return outcome.Variables, err
}

func (e *Engine) runFile(ctx context.Context, path string, tctx *template.Context) (Outcome, error) {
	body, err := readFileCached(path)
	if err != nil {
		return Outcome{}, errs.Hook(fmt.Errorf("hook file %q: %w", path, err))
	}
	// No function-export convention exists without an embedded runtime;
	// file contents are evaluated as the same statement-list language as
	// inline hooks (spec.md §4.6 "otherwise treat contents as inline").
	return e.runInline(ctx, body, tctx)
}

func (e *Engine) runSteps(ctx context.Context, steps []testplan.Step, tctx *template.Context) (Outcome, error) {
	if e.Steps == nil {
		return Outcome{}, errs.Hook(fmt.Errorf("steps hook: no step runner configured"))
	}
	var lastErr error
	for _, s := range steps {
		success, err := e.Steps.Execute(ctx, s, tctx, tctx.ScenarioName)
		if err != nil {
			lastErr = err
		} else if !success {
			lastErr = fmt.Errorf("hook step %q failed", s.Name)
		}
	}
	if lastErr != nil {
		return Outcome{Variables: tctx.Extracted}, errs.Hook(lastErr)
	}
	return Outcome{Variables: tctx.Extracted}, nil
}

// runInline evaluates a ';'-separated list of expr statements. A
// setVariable(name, value) call records into a local variables map,
// merged back per spec.md §4.6's variable-merge semantics. The final
// statement's value becomes the hook's return value.
func (e *Engine) runInline(ctx context.Context, script string, tctx *template.Context) (Outcome, error) {
	vars := map[string]interface{}{}
	for k, v := range tctx.Variables {
		vars[k] = v
	}
	for k, v := range tctx.Extracted {
		vars[k] = v
	}

	set := map[string]interface{}{}
	funcs := builtinFuncs(ctx, vars, set)

	var last interface{}
	for _, stmt := range splitStatements(script) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Outcome{Variables: set}, errs.Hook(ctx.Err())
		default:
		}
		v, err := expr.Eval(stmt, vars, funcs)
		if err != nil {
			return Outcome{Variables: set}, errs.Hook(fmt.Errorf("inline hook: %w", err))
		}
		last = v
	}
	return Outcome{Value: last, Variables: set}, nil
}

func splitStatements(script string) []string {
	return strings.Split(script, ";")
}

// builtinFuncs wires the `utils` namespace functions plus
// setVariable/getVariable spec.md §4.6 names, flattened into the
// top-level function namespace since internal/expr has no namespacing.
func builtinFuncs(ctx context.Context, vars map[string]interface{}, set map[string]interface{}) map[string]expr.Func {
	return map[string]expr.Func{
		"setVariable": func(args []interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("setVariable expects 2 args")
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("setVariable: name must be a string")
			}
			vars[name] = args[1]
			set[name] = args[1]
			return args[1], nil
		},
		"getVariable": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("getVariable expects 1 arg")
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("getVariable: name must be a string")
			}
			return vars[name], nil
		},
		"randomInt": func(args []interface{}) (interface{}, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("randomInt expects 2 args")
			}
			lo, loOK := asInt(args[0])
			hi, hiOK := asInt(args[1])
			if !loOK || !hiOK || hi < lo {
				return nil, fmt.Errorf("randomInt: invalid bounds")
			}
			return float64(lo + rand.Intn(hi-lo+1)), nil
		},
		"randomChoice": func(args []interface{}) (interface{}, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("randomChoice expects at least 1 arg")
			}
			return args[rand.Intn(len(args))], nil
		},
		"uuid": func(args []interface{}) (interface{}, error) {
			return uuid.NewString(), nil
		},
		"sleep": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("sleep expects 1 arg (ms)")
			}
			ms, ok := asInt(args[0])
			if !ok {
				return nil, fmt.Errorf("sleep: arg must be numeric")
			}
			timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
		"timestamp": func(args []interface{}) (interface{}, error) {
			return float64(time.Now().UnixMilli()), nil
		},
		"isoDate": func(args []interface{}) (interface{}, error) {
			return time.Now().UTC().Format(time.RFC3339), nil
		},
	}
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}
