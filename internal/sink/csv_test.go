package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/vustorm/vustorm/internal/metrics"
)

func TestCSV_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV() error = %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	status := 200
	if err := s.WriteResult(metrics.Result{
		ID: "r1", VUID: 1, Iteration: 0, Scenario: "checkout", StepName: "pay",
		Timestamp: 100, DurationMS: 12.5, Success: true, Status: &status,
	}); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}
	if err := s.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (header + one result)", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("header[0] = %q, want id", rows[0][0])
	}
	if rows[1][3] != "checkout" || rows[1][4] != "pay" {
		t.Errorf("row = %v, want scenario=checkout step_name=pay", rows[1])
	}
}

func TestCSV_WriteSummaryIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV() error = %v", err)
	}
	if err := s.WriteSummary(metrics.Summary{TotalRequests: 5}); err != nil {
		t.Errorf("WriteSummary() error = %v, want nil (no-op)", err)
	}
}
