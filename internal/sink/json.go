package sink

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/vustorm/vustorm/internal/metrics"
)

// JSON writes newline-delimited JSON: one {"type":"result", ...} object
// per Result, and one {"type":"summary", ...} line per WriteSummary call
// with the Summary's fields inlined beside "type"; Finalize only closes
// the file. Mirrors grafana-k6's JSON output format.
type JSON struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewJSON(path string) (*JSON, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &JSON{file: f, enc: json.NewEncoder(f)}, nil
}

func (j *JSON) Initialize() error { return nil }

func (j *JSON) WriteResult(r metrics.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(struct {
		Type string `json:"type"`
		metrics.Result
	}{Type: "result", Result: r})
}

func (j *JSON) WriteSummary(s metrics.Summary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(struct {
		Type string `json:"type"`
		metrics.Summary
	}{Type: "summary", Summary: s})
}

func (j *JSON) Finalize() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
