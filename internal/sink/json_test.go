package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/vustorm/vustorm/internal/metrics"
)

func TestJSON_WritesResultAndSummaryLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := NewJSON(path)
	if err != nil {
		t.Fatalf("NewJSON() error = %v", err)
	}

	if err := s.WriteResult(metrics.Result{ID: "r1", Scenario: "checkout", StepName: "pay", Success: true}); err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}
	if err := s.WriteSummary(metrics.Summary{TotalRequests: 10}); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	if err := s.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []map[string]interface{}
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0]["type"] != "result" || lines[0]["scenario"] != "checkout" {
		t.Errorf("line 0 = %v, want type=result scenario=checkout", lines[0])
	}
	if lines[1]["type"] != "summary" || lines[1]["total_requests"].(float64) != 10 {
		t.Errorf("line 1 = %v, want type=summary total_requests=10", lines[1])
	}
}
