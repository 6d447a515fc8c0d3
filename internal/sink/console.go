package sink

import (
	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/metrics"
)

// Console writes a one-line-per-result trace at debug level and a
// formatted summary at the end, replacing the teacher's ANSI
// live-dashboard (internal/output) with the ambient logger's leveled
// text lines — there is no interactive terminal surface here to paint.
type Console struct {
	log *diag.Logger
}

func NewConsole(log *diag.Logger) *Console {
	if log == nil {
		log = diag.Default()
	}
	return &Console{log: log.With("sink=console")}
}

func (c *Console) Initialize() error { return nil }

func (c *Console) WriteResult(r metrics.Result) error {
	status := 0
	if r.Status != nil {
		status = *r.Status
	}
	c.log.Debug("%s/%s vu=%d iter=%d status=%d success=%v duration=%.1fms",
		r.Scenario, r.StepName, r.VUID, r.Iteration, status, r.Success, r.DurationMS)
	return nil
}

func (c *Console) WriteSummary(s metrics.Summary) error {
	c.log.Info("--- summary ---")
	c.log.Info("requests: total=%d success=%d failed=%d success_rate=%.2f%%",
		s.TotalRequests, s.SuccessRequests, s.FailedRequests, s.SuccessRate)
	c.log.Info("duration(ms): avg=%.2f min=%.2f max=%.2f p95=%.2f p99=%.2f",
		s.AvgDurationMS, s.MinDurationMS, s.MaxDurationMS, s.Percentiles["p95"], s.Percentiles["p99"])
	c.log.Info("throughput: rps=%.2f bytes/sec=%.2f", s.RPS, s.BytesPerSecond)
	for _, e := range s.ErrorDetails {
		c.log.Warn("error: scenario=%s step=%s status=%d count=%d message=%s", e.Scenario, e.Step, e.Status, e.Count, e.Message)
	}
	return nil
}

func (c *Console) Finalize() error { return nil }
