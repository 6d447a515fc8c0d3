// Package metrics implements the streaming Metrics Collector (C5): a
// process-wide sink that ingests Results under concurrent load,
// maintains running aggregates and a bounded reservoir sample, and
// flushes batches to downstream sinks.
//
// Grounded on internal/performance/v2/metrics/engine.go's Engine
// (critical-section RecordLatency, emitter loop, GetSnapshot) merged
// with perf_ref/metrics's Phase/TimeBucket/TimeBucketStore types, which
// the v2 engine references but never defines in its own package — here
// the two halves are reconciled into one coherent package.
package metrics

import "time"

// Phase names a stage of a load test's lifecycle. TimelineBucket has no
// phase field, and nothing in this module sets or records a Phase.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseWarmup   Phase = "warmup"
	PhaseRampUp   Phase = "ramp-up"
	PhaseSteady   Phase = "steady"
	PhaseRampDown Phase = "ramp-down"
	PhaseCooldown Phase = "cooldown"
	PhaseDone     Phase = "done"
)

// Result is the immutable record produced once per measurable step
// execution (spec.md §3), owned briefly by the VU then transferred to
// the Collector.
type Result struct {
	ID        string    `json:"id"`
	VUID      int       `json:"vu_id"`
	Iteration int       `json:"iteration"`
	Scenario  string    `json:"scenario"`
	StepName  string    `json:"step_name"`
	Timestamp int64     `json:"timestamp_ns"`
	Time      time.Time `json:"-"`

	DurationMS float64 `json:"duration_ms"`
	Success    bool    `json:"success"`

	Status            *int    `json:"status,omitempty"`
	BytesSent         *int64  `json:"bytes_sent,omitempty"`
	BytesReceived     *int64  `json:"bytes_received,omitempty"`
	LatencyFirstByte  *float64 `json:"latency_first_byte,omitempty"`
	ConnectTimeMS     *float64 `json:"connect_time,omitempty"`
	Error             string  `json:"error,omitempty"`
	ErrorKind         string  `json:"error_kind,omitempty"`
}

// VUStartEvent marks when a VU began, used to compute active_vus per
// timeline bucket (spec.md §4.3).
type VUStartEvent struct {
	VUID      int
	StartedAt int64 // unix nanoseconds
}

// errorKey groups failures by (scenario, step, status, error_message)
// per spec.md §4.3's "Error grouping" rule.
type errorKey struct {
	Scenario string
	Step     string
	Status   int
	Message  string
}

// errorGroup counts occurrences of one errorKey, keeping the first
// occurrence's metadata.
type errorGroup struct {
	Key       errorKey
	Count     int64
	FirstSeen Result
}

// stepStats accumulates per-(scenario, step_name) statistics from
// stored results (spec.md §4.3's "Per-step stats... from stored
// results").
type stepStats struct {
	Scenario    string
	StepName    string
	Count       int64
	SuccessN    int64
	SumDuration float64
	Min         float64
	Max         float64
}

// RunningStats is the single-mutex-protected aggregate state
// RecordResult mutates (spec.md §3 RunningStats).
type RunningStats struct {
	NTotal      int64
	NSuccess    int64
	NFail       int64
	SumDuration float64
	Min         float64
	Max         float64

	StatusCounts map[int]int64
	ErrorCounts  map[errorKey]*errorGroup
	StepStats    map[string]*stepStats // key: scenario + "\x00" + stepName

	VUStarts []VUStartEvent
}

func newRunningStats() *RunningStats {
	return &RunningStats{
		StatusCounts: make(map[int]int64),
		ErrorCounts:  make(map[errorKey]*errorGroup),
		StepStats:    make(map[string]*stepStats),
		Min:          0,
		Max:          0,
	}
}

func stepStatsKey(scenario, step string) string {
	return scenario + "\x00" + step
}

// Summary is the single record produced at the end of a run (spec.md §6
// "Outputs").
type Summary struct {
	TotalRequests     int64              `json:"total_requests"`
	SuccessRequests   int64              `json:"success_requests"`
	FailedRequests    int64              `json:"failed_requests"`
	SuccessRate       float64            `json:"success_rate"`
	AvgDurationMS     float64            `json:"avg_duration_ms"`
	MinDurationMS     float64            `json:"min_duration_ms"`
	MaxDurationMS     float64            `json:"max_duration_ms"`
	Percentiles       map[string]float64 `json:"percentiles"`
	RPS               float64            `json:"rps"`
	BytesPerSecond    float64            `json:"bytes_per_second"`
	StatusDistribution map[int]int64     `json:"status_distribution"`
	ErrorDistribution map[string]int64   `json:"error_distribution"`
	ErrorDetails      []ErrorDetail      `json:"error_details"`
	StepStatistics    []StepStatistic    `json:"step_statistics"`
	VURampUpEvents    []VUStartEvent     `json:"vu_ramp_up_events"`
	Timeline          []TimelineBucket   `json:"timeline"`
	ElapsedSeconds    float64            `json:"elapsed_seconds"`
}

// ErrorDetail is one distinct (scenario, step, status, message) group,
// sorted by count descending in the Summary.
type ErrorDetail struct {
	Scenario string `json:"scenario"`
	Step     string `json:"step"`
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Count    int64  `json:"count"`
}

// StepStatistic is the per-(scenario, step_name) breakdown.
type StepStatistic struct {
	Scenario      string  `json:"scenario"`
	StepName      string  `json:"step_name"`
	Count         int64   `json:"count"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	MinDurationMS float64 `json:"min_duration_ms"`
	MaxDurationMS float64 `json:"max_duration_ms"`
}

// TimelineBucket is one 5-second interval's aggregate (spec.md §4.3).
type TimelineBucket struct {
	BucketStart   int64   `json:"bucket_start"`
	ActiveVUs     int     `json:"active_vus"`
	Requests      int64   `json:"requests"`
	AvgDurationMS float64 `json:"avg_rt"`
	SuccessRate   float64 `json:"success_rate"`
	Throughput    float64 `json:"throughput"`
}
