package testplan

import (
	"fmt"
	"net/url"

	"github.com/vustorm/vustorm/internal/clock"
)

// Errors collects every validation failure found in a TestPlan, mirroring
// internal/performance/v2/config.ValidationErrors so a single Validate
// call reports everything wrong at once instead of stopping at the first
// problem.
type Errors struct {
	Items []string
}

func (e *Errors) add(format string, args ...interface{}) {
	e.Items = append(e.Items, fmt.Sprintf(format, args...))
}

func (e *Errors) HasErrors() bool { return len(e.Items) > 0 }

func (e *Errors) Error() string {
	if len(e.Items) == 1 {
		return e.Items[0]
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Items))
	for i, it := range e.Items {
		msg += fmt.Sprintf("  %d. %s\n", i+1, it)
	}
	return msg
}

// Validate checks a TestPlan against the invariants of spec.md §3 and
// §4.7 and returns an *Errors (as error) describing every violation, or
// nil if the plan is valid.
func Validate(plan *TestPlan) error {
	errs := &Errors{}

	if plan.Name == "" {
		errs.add("name is required")
	}
	if len(plan.Load) == 0 {
		errs.add("load: at least one phase is required")
	}
	for i, phase := range plan.Load {
		validatePhase(i, &phase, errs)
	}
	if len(plan.Scenarios) == 0 {
		errs.add("scenarios: at least one scenario is required")
	}
	for i, sc := range plan.Scenarios {
		validateScenario(i, &sc, errs)
	}
	if plan.Global.BaseURL != "" {
		if _, err := url.Parse(plan.Global.BaseURL); err != nil {
			errs.add("global.base_url: invalid URL: %v", err)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validatePhase(i int, p *LoadPhase, errs *Errors) {
	prefix := fmt.Sprintf("load[%d]", i)
	switch p.Pattern {
	case PatternBasic:
		if p.Users <= 0 {
			errs.add("%s: basic pattern requires users > 0", prefix)
		}
		if p.Duration.Duration() <= 0 {
			errs.add("%s: basic pattern requires duration > 0", prefix)
		}
	case PatternStepping:
		if len(p.Steps) == 0 {
			errs.add("%s: stepping pattern requires non-empty steps", prefix)
		}
		for si, step := range p.Steps {
			if step.Duration.Duration() <= 0 {
				errs.add("%s.steps[%d]: duration must be > 0", prefix, si)
			}
			if step.Users < 0 {
				errs.add("%s.steps[%d]: users cannot be negative", prefix, si)
			}
		}
	case PatternArrivals:
		if p.Rate <= 0 {
			errs.add("%s: arrivals pattern requires rate > 0", prefix)
		}
		if p.Duration.Duration() <= 0 {
			errs.add("%s: arrivals pattern requires duration > 0", prefix)
		}
	default:
		errs.add("%s: unknown pattern %q", prefix, p.Pattern)
	}
}

func validateScenario(i int, sc *Scenario, errs *Errors) {
	prefix := fmt.Sprintf("scenarios[%d]", i)
	if sc.Name == "" {
		errs.add("%s: name is required", prefix)
	}
	if sc.Weight < 0 || sc.Weight > 100 {
		errs.add("%s: weight must be within [0,100]", prefix)
	}
	if len(sc.Steps) == 0 {
		errs.add("%s: at least one step is required", prefix)
	}
	validSteps := map[string]bool{"rest": true, "soap": true, "web": true, "wait": true, "custom": true}
	for si, step := range sc.Steps {
		sp := fmt.Sprintf("%s.steps[%d]", prefix, si)
		if !validSteps[step.Type] {
			errs.add("%s: unknown step type %q", sp, step.Type)
		}
		if step.Retry != nil {
			if step.Retry.Backoff != "" && step.Retry.Backoff != "linear" && step.Retry.Backoff != "exponential" {
				errs.add("%s.retry.backoff: must be linear or exponential", sp)
			}
		}
		for ci, c := range step.Checks {
			validateCheck(fmt.Sprintf("%s.checks[%d]", sp, ci), &c, errs)
		}
		for ei, ex := range step.Extract {
			validateExtraction(fmt.Sprintf("%s.extract[%d]", sp, ei), &ex, errs)
		}
		if step.ThinkTime != "" {
			if _, ok := clock.ThinkTime(step.ThinkTime); !ok {
				errs.add("%s.thinkTime: unparsable %q, falls back to default range", sp, step.ThinkTime)
			}
		}
	}
	if sc.DataBinding != nil && sc.DataBinding.File == "" {
		errs.add("%s.dataBinding: file is required", prefix)
	}
}

func validateCheck(prefix string, c *Check, errs *Errors) {
	validKinds := map[string]bool{
		"status": true, "response_time": true, "json_path": true,
		"text_contains": true, "regex": true, "custom": true,
	}
	if !validKinds[c.Kind] {
		errs.add("%s: unknown kind %q", prefix, c.Kind)
	}
	if c.Kind == "json_path" && c.Path == "" {
		errs.add("%s: json_path check requires path", prefix)
	}
}

func validateExtraction(prefix string, e *Extraction, errs *Errors) {
	validKinds := map[string]bool{"json_path": true, "regex": true, "header": true, "selector": true}
	if e.Name == "" {
		errs.add("%s: name is required", prefix)
	}
	if !validKinds[e.Kind] {
		errs.add("%s: unknown kind %q", prefix, e.Kind)
	}
	if e.Expression == "" {
		errs.add("%s: expression is required", prefix)
	}
}
