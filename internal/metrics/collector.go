package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/vustorm/vustorm/internal/diag"
)

// hdrLowestMS/hdrHighestMS/hdrSigFigs size the live latency histogram
// used for cheap mid-run percentile snapshots: 1ms to 1 hour, 3
// significant figures, mirroring internal/performance/v2/metrics/engine.go's
// "O(1) calculation" rationale: a snapshot read never sorts the
// reservoir.
const (
	hdrLowestMS  = 1
	hdrHighestMS = 3_600_000
	hdrSigFigs   = 3
)

// Sink is the narrow contract a result consumer implements (spec.md §6
// "Sink contract"). Defined here, beside its sole caller, rather than in
// internal/sink, to avoid a metrics <-> sink import cycle; concrete
// implementations live in internal/sink.
type Sink interface {
	Initialize() error
	WriteResult(Result) error
	WriteSummary(Summary) error
	Finalize() error
}

const (
	defaultReservoirCapacity = 10000
	defaultMaxStored         = 50000
	defaultBatchSafetyCeil   = 1000
)

// CollectorConfig tunes the Collector's caps and flush cadence. Zero
// values fall back to spec.md §4.3's defaults.
type CollectorConfig struct {
	ReservoirCapacity int
	MaxStored         int
	BatchSize         int
	FlushInterval     time.Duration

	// SnapshotPath, if set, names a file overwritten on every flush with
	// the full current list of Results as a JSON array (spec.md §4.3
	// flush target (c), §6 "Incremental snapshot file") for dashboards
	// that want a live view without tailing the NDJSON/CSV sinks. Empty
	// disables the snapshot writer.
	SnapshotPath string
}

func (c CollectorConfig) withDefaults() CollectorConfig {
	if c.ReservoirCapacity <= 0 {
		c.ReservoirCapacity = defaultReservoirCapacity
	}
	if c.MaxStored <= 0 {
		c.MaxStored = defaultMaxStored
	}
	if c.BatchSize <= 0 || c.BatchSize > defaultBatchSafetyCeil {
		c.BatchSize = defaultBatchSafetyCeil
	}
	return c
}

// Collector is the process-wide Metrics Collector (C5): ingests Results
// under a single critical section, maintains RunningStats + Reservoir,
// and fans flushed batches out to Sinks on a timer/size/Finalize cadence.
type Collector struct {
	cfg       CollectorConfig
	log       *diag.Logger
	startTime time.Time

	mu        sync.Mutex
	stats     *RunningStats
	reservoir *Reservoir
	liveHist  *hdrhistogram.Histogram
	stored    []Result

	pendingMu sync.Mutex
	pending   []Result

	sinks []Sink

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// NewCollector constructs a Collector wired to the given sinks. Call
// Start before RecordResult, and Finalize exactly once when the run
// ends.
func NewCollector(cfg CollectorConfig, sinks []Sink, log *diag.Logger) *Collector {
	if log == nil {
		log = diag.Default()
	}
	cfg = cfg.withDefaults()
	return &Collector{
		cfg:       cfg,
		log:       log,
		stats:     newRunningStats(),
		reservoir: NewReservoir(cfg.ReservoirCapacity),
		liveHist:  hdrhistogram.New(hdrLowestMS, hdrHighestMS, hdrSigFigs),
		sinks:     sinks,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start initializes every sink and launches the batch-flush loop.
func (c *Collector) Start(ctx context.Context) error {
	c.startTime = time.Now()
	for _, s := range c.sinks {
		if err := s.Initialize(); err != nil {
			c.log.Warn("metrics: sink initialize failed: %v", err)
		}
	}
	go c.runFlushLoop(ctx)
	return nil
}

// RecordResult ingests one Result under a single critical section
// (spec.md §4.3 "Ingress").
func (c *Collector) RecordResult(r Result) {
	c.mu.Lock()
	c.stats.NTotal++
	if r.Success {
		c.stats.NSuccess++
		c.stats.SumDuration += r.DurationMS
		if c.stats.NSuccess == 1 || r.DurationMS < c.stats.Min {
			c.stats.Min = r.DurationMS
		}
		if r.DurationMS > c.stats.Max {
			c.stats.Max = r.DurationMS
		}
	} else {
		c.stats.NFail++
	}

	if r.Status != nil {
		c.stats.StatusCounts[*r.Status]++
	}

	if !r.Success {
		status := 0
		if r.Status != nil {
			status = *r.Status
		}
		key := errorKey{Scenario: r.Scenario, Step: r.StepName, Status: status, Message: r.Error}
		if group, ok := c.stats.ErrorCounts[key]; ok {
			group.Count++
		} else {
			c.stats.ErrorCounts[key] = &errorGroup{Key: key, Count: 1, FirstSeen: r}
		}
	}

	c.reservoir.Add(r.DurationMS)
	if v := int64(r.DurationMS); v >= hdrLowestMS && v <= hdrHighestMS {
		_ = c.liveHist.RecordValue(v)
	}

	if len(c.stored) < c.cfg.MaxStored {
		c.stored = append(c.stored, r)
		c.accumulateStepStats(r)
	}
	c.mu.Unlock()

	c.pendingMu.Lock()
	c.pending = append(c.pending, r)
	shouldFlush := len(c.pending) >= c.cfg.BatchSize
	c.pendingMu.Unlock()

	if shouldFlush {
		c.flush()
	}
}

func (c *Collector) accumulateStepStats(r Result) {
	key := stepStatsKey(r.Scenario, r.StepName)
	stats, ok := c.stats.StepStats[key]
	if !ok {
		stats = &stepStats{Scenario: r.Scenario, StepName: r.StepName}
		c.stats.StepStats[key] = stats
	}
	stats.Count++
	if r.Success {
		stats.SuccessN++
		stats.SumDuration += r.DurationMS
		if stats.Count == 1 || r.DurationMS < stats.Min {
			stats.Min = r.DurationMS
		}
		if r.DurationMS > stats.Max {
			stats.Max = r.DurationMS
		}
	}
}

// RecordVUStart records a VU-start event for timeline active_vus
// accounting (spec.md §4.3).
func (c *Collector) RecordVUStart(vuID int) {
	c.mu.Lock()
	c.stats.VUStarts = append(c.stats.VUStarts, VUStartEvent{VUID: vuID, StartedAt: time.Now().UnixNano()})
	c.mu.Unlock()
}

func (c *Collector) runFlushLoop(ctx context.Context) {
	defer close(c.doneCh)

	var tick <-chan time.Time
	if c.cfg.FlushInterval > 0 {
		ticker := time.NewTicker(c.cfg.FlushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.flush()
			return
		case <-c.stopCh:
			c.flush()
			return
		case <-tick:
			c.flush()
		}
	}
}

// flush swaps the pending buffer under lock then dispatches it to sinks
// without holding the lock (spec.md §5 "swap-under-lock").
func (c *Collector) flush() {
	c.pendingMu.Lock()
	if len(c.pending) == 0 {
		c.pendingMu.Unlock()
		return
	}
	batch := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	for _, r := range batch {
		for _, s := range c.sinks {
			if err := s.WriteResult(r); err != nil {
				c.log.Warn("metrics: sink write_result failed: %v", err)
			}
		}
	}

	c.writeSnapshot()
}

// writeSnapshot overwrites cfg.SnapshotPath with the full current list
// of stored Results as a JSON array (spec.md §4.3 flush target (c)).
// Best-effort: a failure is logged, never propagated, matching every
// other flush target.
func (c *Collector) writeSnapshot() {
	if c.cfg.SnapshotPath == "" {
		return
	}

	c.mu.Lock()
	batch := make([]Result, len(c.stored))
	copy(batch, c.stored)
	c.mu.Unlock()

	data, err := json.Marshal(batch)
	if err != nil {
		c.log.Warn("metrics: snapshot marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(c.cfg.SnapshotPath, data, 0o644); err != nil {
		c.log.Warn("metrics: snapshot write failed: %v", err)
	}
}

// Finalize stops the flush timer, drains the pending buffer, and waits
// for in-flight flushes to complete (spec.md §4.3 "Cancellation").
func (c *Collector) Finalize() {
	c.once.Do(func() {
		close(c.stopCh)
		<-c.doneCh

		summary := c.GetSummary()
		for _, s := range c.sinks {
			if err := s.WriteSummary(summary); err != nil {
				c.log.Warn("metrics: sink write_summary failed: %v", err)
			}
			if err := s.Finalize(); err != nil {
				c.log.Warn("metrics: sink finalize failed: %v", err)
			}
		}
	})
}

// Snapshot is a minimal point-in-time view, distinct from the end-of-run
// Summary; String() reads it. Threshold evaluation
// (internal/runner/threshold.go) does not use it: it runs once, after
// the run, on the final Summary. Percentiles here come from the live HDR
// histogram (O(1) per read) rather than the reservoir, so a read never
// re-sorts the reservoir; the final Summary's percentiles still come
// only from the reservoir.
type Snapshot struct {
	NTotal      int64
	NSuccess    int64
	NFail       int64
	ElapsedSecs float64
	Percentiles map[string]float64
}

var snapshotQuantiles = map[string]float64{
	"p50": 50, "p90": 90, "p95": 95, "p99": 99, "p99.9": 99.9, "p99.99": 99.99,
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	percentiles := make(map[string]float64, len(snapshotQuantiles))
	for label, q := range snapshotQuantiles {
		percentiles[label] = float64(c.liveHist.ValueAtQuantile(q))
	}

	return Snapshot{
		NTotal:      c.stats.NTotal,
		NSuccess:    c.stats.NSuccess,
		NFail:       c.stats.NFail,
		ElapsedSecs: time.Since(c.startTime).Seconds(),
		Percentiles: percentiles,
	}
}

func (c *Collector) String() string {
	s := c.Snapshot()
	return fmt.Sprintf("total=%d success=%d fail=%d", s.NTotal, s.NSuccess, s.NFail)
}
