package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/vustorm/vustorm/internal/metrics"
)

var csvHeader = []string{
	"id", "vu_id", "iteration", "scenario", "step_name", "timestamp_ns",
	"duration_ms", "success", "status", "error",
}

// CSV writes one row per recorded Result, mirroring grafana-k6's
// stdlib-based CSV output. No CSV library appears anywhere in the
// retrieved example pack (see DESIGN.md).
type CSV struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &CSV{file: f, writer: csv.NewWriter(f)}, nil
}

func (c *CSV) Initialize() error {
	return c.writer.Write(csvHeader)
}

func (c *CSV) WriteResult(r metrics.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := ""
	if r.Status != nil {
		status = strconv.Itoa(*r.Status)
	}
	row := []string{
		r.ID,
		strconv.Itoa(r.VUID),
		strconv.Itoa(r.Iteration),
		r.Scenario,
		r.StepName,
		strconv.FormatInt(r.Timestamp, 10),
		strconv.FormatFloat(r.DurationMS, 'f', 3, 64),
		strconv.FormatBool(r.Success),
		status,
		r.Error,
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv sink: write row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

// WriteSummary is a no-op: the CSV sink records per-result rows only,
// matching spec.md §6's "one row per result" contract for this format.
func (c *CSV) WriteSummary(metrics.Summary) error { return nil }

func (c *CSV) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return err
	}
	return c.file.Close()
}
