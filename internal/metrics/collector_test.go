package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingSink captures every call for assertions, mirroring the
// teacher's pattern of small in-package fakes over a handler/sink
// interface rather than a mocking framework.
type recordingSink struct {
	mu       sync.Mutex
	results  []Result
	summary  *Summary
	finalize int
}

func (s *recordingSink) Initialize() error { return nil }
func (s *recordingSink) WriteResult(r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}
func (s *recordingSink) WriteSummary(sum Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &sum
	return nil
}
func (s *recordingSink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalize++
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func intPtr(v int) *int { return &v }

func TestCollector_RecordResult_ConservesCount(t *testing.T) {
	c := NewCollector(CollectorConfig{BatchSize: 1}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	for i := 0; i < 100; i++ {
		success := i%4 != 0
		c.RecordResult(Result{
			ID: "r", Scenario: "s", StepName: "step", DurationMS: float64(i + 1),
			Success: success, Status: intPtr(200),
		})
	}

	summary := c.GetSummary()
	require.EqualValues(t, 100, summary.TotalRequests)
	require.EqualValues(t, summary.SuccessRequests+summary.FailedRequests, summary.TotalRequests)
}

func TestCollector_SuccessRateIdentity(t *testing.T) {
	c := NewCollector(CollectorConfig{}, nil, nil)
	require.NoError(t, c.Start(context.Background()))

	for i := 0; i < 10; i++ {
		c.RecordResult(Result{Success: i < 7, DurationMS: 10})
	}

	summary := c.GetSummary()
	require.InDelta(t, 70.0, summary.SuccessRate, 0.001)
}

func TestCollector_PercentilesMonotonic(t *testing.T) {
	c := NewCollector(CollectorConfig{}, nil, nil)
	require.NoError(t, c.Start(context.Background()))

	for i := 1; i <= 1000; i++ {
		c.RecordResult(Result{Success: true, DurationMS: float64(i)})
	}

	summary := c.GetSummary()
	require.LessOrEqual(t, summary.Percentiles["p50"], summary.Percentiles["p90"])
	require.LessOrEqual(t, summary.Percentiles["p90"], summary.Percentiles["p95"])
	require.LessOrEqual(t, summary.Percentiles["p95"], summary.Percentiles["p99"])
}

func TestCollector_FlushesToSinks(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(CollectorConfig{BatchSize: 5, FlushInterval: 10 * time.Millisecond}, []Sink{sink}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	for i := 0; i < 5; i++ {
		c.RecordResult(Result{Success: true, DurationMS: 1})
	}

	require.Eventually(t, func() bool { return sink.count() == 5 }, time.Second, 5*time.Millisecond)

	c.Finalize()
	require.Equal(t, 1, sink.finalize)
	require.NotNil(t, sink.summary)
}

func TestCollector_SnapshotUsesLiveHistogram(t *testing.T) {
	c := NewCollector(CollectorConfig{}, nil, nil)
	require.NoError(t, c.Start(context.Background()))

	for i := 1; i <= 100; i++ {
		c.RecordResult(Result{Success: true, DurationMS: float64(i)})
	}

	snap := c.Snapshot()
	require.EqualValues(t, 100, snap.NTotal)
	require.Greater(t, snap.Percentiles["p99"], snap.Percentiles["p50"])
}

func TestCollector_ErrorGrouping(t *testing.T) {
	c := NewCollector(CollectorConfig{}, nil, nil)
	require.NoError(t, c.Start(context.Background()))

	for i := 0; i < 3; i++ {
		c.RecordResult(Result{Scenario: "checkout", StepName: "pay", Success: false, Status: intPtr(500), Error: "boom"})
	}
	c.RecordResult(Result{Scenario: "checkout", StepName: "pay", Success: false, Status: intPtr(500), Error: "other"})

	summary := c.GetSummary()
	require.Len(t, summary.ErrorDetails, 2)
	for _, d := range summary.ErrorDetails {
		if d.Message == "boom" {
			require.EqualValues(t, 3, d.Count)
		}
	}
}
