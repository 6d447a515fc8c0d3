// Package testplan defines the declarative shape of a load test: the
// TestPlan tree produced by a config loader (YAML/JSON parsing itself is
// an external collaborator per spec.md §1, but the validated tree and
// its loader live here, generalizing
// internal/performance/v2/config/schema.go).
package testplan

// TestPlan is immutable once loaded; the Runner owns it for the
// duration of one test.
type TestPlan struct {
	Name       string               `yaml:"name" json:"name"`
	Global     GlobalConfig         `yaml:"global,omitempty" json:"global,omitempty"`
	Load       []LoadPhase          `yaml:"load" json:"load"`
	Scenarios  []Scenario           `yaml:"scenarios" json:"scenarios"`
	Outputs    []OutputConfig       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Thresholds *ThresholdsConfig    `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	Report     ReportConfig         `yaml:"report,omitempty" json:"report,omitempty"`
	Debug      DebugConfig          `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// GlobalConfig holds the keys recognized under the "global" key in
// spec.md §6's table.
type GlobalConfig struct {
	BaseURL     string            `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Timeout     Duration          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	ThinkTime   string            `yaml:"think_time,omitempty" json:"think_time,omitempty"`
	Faker       FakerConfig       `yaml:"faker,omitempty" json:"faker,omitempty"`
	CSVData     string            `yaml:"csv_data,omitempty" json:"csv_data,omitempty"`
	CSVMode     string            `yaml:"csv_mode,omitempty" json:"csv_mode,omitempty"`
}

// FakerConfig configures the Template Engine's synthetic-data locale and
// determinism (spec.md §4.1).
type FakerConfig struct {
	Locale string `yaml:"locale,omitempty" json:"locale,omitempty"`
	Seed   int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Pattern identifies one of the three Load Pattern strategies (C8).
type Pattern string

const (
	PatternBasic    Pattern = "basic"
	PatternStepping Pattern = "stepping"
	PatternArrivals Pattern = "arrivals"
)

// LoadPhase is one element of the load schedule (spec.md §3).
type LoadPhase struct {
	Pattern      Pattern     `yaml:"pattern" json:"pattern"`
	Users        int         `yaml:"users,omitempty" json:"users,omitempty"`
	Rate         float64     `yaml:"rate,omitempty" json:"rate,omitempty"`
	Duration     Duration    `yaml:"duration,omitempty" json:"duration,omitempty"`
	RampUp       Duration    `yaml:"rampUp,omitempty" json:"rampUp,omitempty"`
	VUDuration   Duration    `yaml:"vu_duration,omitempty" json:"vu_duration,omitempty"`
	Steps        []PhaseStep `yaml:"steps,omitempty" json:"steps,omitempty"`
	GracefulStop Duration    `yaml:"gracefulStop,omitempty" json:"gracefulStop,omitempty"`
}

// PhaseStep is one staircase step of a "stepping" LoadPhase.
type PhaseStep struct {
	Users    int      `yaml:"users" json:"users"`
	Duration Duration `yaml:"duration" json:"duration"`
	RampUp   Duration `yaml:"rampUp,omitempty" json:"rampUp,omitempty"`
}

// DataBinding configures a scenario-local (or global) DataProvider
// cursor (spec.md §3, §4.2).
type DataBinding struct {
	File              string            `yaml:"file" json:"file"`
	Mode              string            `yaml:"mode,omitempty" json:"mode,omitempty"` // next|unique|random
	Delimiter         string            `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	Columns           map[string]string `yaml:"columns,omitempty" json:"columns,omitempty"`
	CycleOnExhaustion bool              `yaml:"cycleOnExhaustion" json:"cycleOnExhaustion"`
}

// HookSet groups every lifecycle hook point spec.md §4.6 enumerates.
// Which fields apply depends on the owner (VU, scenario, loop, step).
type HookSet struct {
	BeforeVU        *Hook `yaml:"beforeVU,omitempty" json:"beforeVU,omitempty"`
	TeardownVU      *Hook `yaml:"teardownVU,omitempty" json:"teardownVU,omitempty"`
	BeforeScenario  *Hook `yaml:"beforeScenario,omitempty" json:"beforeScenario,omitempty"`
	TeardownScenario *Hook `yaml:"teardownScenario,omitempty" json:"teardownScenario,omitempty"`
	BeforeLoop      *Hook `yaml:"beforeLoop,omitempty" json:"beforeLoop,omitempty"`
	AfterLoop       *Hook `yaml:"afterLoop,omitempty" json:"afterLoop,omitempty"`
}

// StepHooks are the per-step hook points (spec.md §4.4 steps 2 and 7).
type StepHooks struct {
	BeforeStep   *Hook `yaml:"beforeStep,omitempty" json:"beforeStep,omitempty"`
	OnStepError  *Hook `yaml:"onStepError,omitempty" json:"onStepError,omitempty"`
	TeardownStep *Hook `yaml:"teardownStep,omitempty" json:"teardownStep,omitempty"`
}

// Hook is a user-defined lifecycle action (spec.md §4.6).
type Hook struct {
	Kind            string   `yaml:"kind" json:"kind"` // inline|file|steps
	Inline          string   `yaml:"inline,omitempty" json:"inline,omitempty"`
	File            string   `yaml:"file,omitempty" json:"file,omitempty"`
	Steps           []Step   `yaml:"steps,omitempty" json:"steps,omitempty"`
	Timeout         Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	ContinueOnError *bool    `yaml:"continueOnError,omitempty" json:"continueOnError,omitempty"`
}

// ContinueOnErrorOrDefault returns the hook's continueOnError flag,
// defaulting to true (only an explicit false aborts the enclosing
// scope, per spec.md §4.6).
func (h *Hook) ContinueOnErrorOrDefault() bool {
	if h == nil || h.ContinueOnError == nil {
		return true
	}
	return *h.ContinueOnError
}

// Scenario is an ordered script of steps (spec.md §3).
type Scenario struct {
	Name      string            `yaml:"name" json:"name"`
	Weight    int               `yaml:"weight,omitempty" json:"weight,omitempty"`
	Loop      int               `yaml:"loop,omitempty" json:"loop,omitempty"`
	ThinkTime string            `yaml:"thinkTime,omitempty" json:"thinkTime,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Steps     []Step            `yaml:"steps" json:"steps"`
	Hooks     HookSet           `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	DataBinding *DataBinding    `yaml:"dataBinding,omitempty" json:"dataBinding,omitempty"`
	Tags      map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// WeightOrDefault returns Weight, defaulting to 100 (spec.md §3).
func (s *Scenario) WeightOrDefault() int {
	if s.Weight <= 0 {
		return 100
	}
	return s.Weight
}

// LoopOrDefault returns Loop, defaulting to 1.
func (s *Scenario) LoopOrDefault() int {
	if s.Loop <= 0 {
		return 1
	}
	return s.Loop
}

// RetryConfig controls the Step Executor's retry loop (spec.md §4.4).
type RetryConfig struct {
	MaxAttempts int      `yaml:"maxAttempts,omitempty" json:"maxAttempts,omitempty"`
	Delay       Duration `yaml:"delay,omitempty" json:"delay,omitempty"`
	Backoff     string   `yaml:"backoff,omitempty" json:"backoff,omitempty"` // linear|exponential
}

// MaxAttemptsOrDefault returns MaxAttempts, defaulting to 1.
func (r *RetryConfig) MaxAttemptsOrDefault() int {
	if r == nil || r.MaxAttempts <= 0 {
		return 1
	}
	return r.MaxAttempts
}

// Step is a tagged variant over protocol kinds (spec.md §3).
type Step struct {
	Name            string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Type            string                 `yaml:"type" json:"type"` // rest|soap|web|wait|custom
	Condition       string                 `yaml:"condition,omitempty" json:"condition,omitempty"`
	ContinueOnError *bool                  `yaml:"continueOnError,omitempty" json:"continueOnError,omitempty"`
	Retry           *RetryConfig           `yaml:"retry,omitempty" json:"retry,omitempty"`
	Timeout         Duration               `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	ThinkTime       string                 `yaml:"thinkTime,omitempty" json:"thinkTime,omitempty"`
	Payload         map[string]interface{} `yaml:"payload,omitempty" json:"payload,omitempty"`
	Checks          []Check                `yaml:"checks,omitempty" json:"checks,omitempty"`
	Extract         []Extraction           `yaml:"extract,omitempty" json:"extract,omitempty"`
	Hooks           StepHooks              `yaml:"hooks,omitempty" json:"hooks,omitempty"`
}

// ContinueOnErrorOrDefault mirrors Hook's: only an explicit false makes
// a step-failure propagate to the VU (spec.md §4.4 step 9).
func (s *Step) ContinueOnErrorOrDefault() bool {
	if s.ContinueOnError == nil {
		return true
	}
	return *s.ContinueOnError
}

// Check is a post-condition on a step's response (spec.md §3).
type Check struct {
	Kind     string `yaml:"kind" json:"kind"` // status|response_time|json_path|text_contains|regex|custom
	Operator string `yaml:"operator" json:"operator"`
	Expected string `yaml:"expected" json:"expected"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"` // for json_path
}

// Extraction captures a value from a response into extracted_data
// (spec.md §3).
type Extraction struct {
	Name       string `yaml:"name" json:"name"`
	Kind       string `yaml:"kind" json:"kind"` // json_path|regex|header|selector
	Expression string `yaml:"expression" json:"expression"`
	Default    string `yaml:"default,omitempty" json:"default,omitempty"`
}

// OutputConfig describes one output sink (spec.md §6). The core only
// needs enough shape to construct and enable/disable a Sink; the body
// is an external collaborator.
type OutputConfig struct {
	Type    string                 `yaml:"type" json:"type"` // csv|json|influxdb|graphite|webhook|console
	Enabled *bool                  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Options map[string]interface{} `yaml:"options,omitempty" json:"options,omitempty"`
}

// EnabledOrDefault returns Enabled, defaulting to true.
func (o *OutputConfig) EnabledOrDefault() bool {
	if o.Enabled == nil {
		return true
	}
	return *o.Enabled
}

// ReportConfig triggers a post-run summary-to-file write (spec.md §6).
type ReportConfig struct {
	Generate bool   `yaml:"generate,omitempty" json:"generate,omitempty"`
	Output   string `yaml:"output,omitempty" json:"output,omitempty"`
}

// DebugConfig forwards verbosity/capture flags to handlers (spec.md §6).
type DebugConfig struct {
	LogLevel                string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	CaptureResponseBody     bool   `yaml:"capture_response_body,omitempty" json:"capture_response_body,omitempty"`
	CaptureResponseHeaders  bool   `yaml:"capture_response_headers,omitempty" json:"capture_response_headers,omitempty"`
	CaptureRequestBody      bool   `yaml:"capture_request_body,omitempty" json:"capture_request_body,omitempty"`
	CaptureRequestHeaders   bool   `yaml:"capture_request_headers,omitempty" json:"capture_request_headers,omitempty"`
	CaptureOnlyFailures     bool   `yaml:"capture_only_failures,omitempty" json:"capture_only_failures,omitempty"`
	MaxResponseBodySize     int    `yaml:"max_response_body_size,omitempty" json:"max_response_body_size,omitempty"`
}

// ThresholdsConfig defines pass/fail criteria evaluated by the Runner
// after a test completes (supplemented from the teacher's
// internal/performance/v2/engine, not present in spec.md's distillation
// but not excluded by any Non-goal — see SPEC_FULL.md §4.8).
type ThresholdsConfig struct {
	Duration []string            `yaml:"duration,omitempty" json:"duration,omitempty"`
	Failed   []string            `yaml:"failed,omitempty" json:"failed,omitempty"`
	Requests []string            `yaml:"requests,omitempty" json:"requests,omitempty"`
	Custom   map[string][]string `yaml:"custom,omitempty" json:"custom,omitempty"`
}
