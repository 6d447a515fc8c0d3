// Package sink implements the Sink contract (spec.md §6) the Metrics
// Collector flushes batches to: console, CSV, and JSON reference
// implementations, plus a factory building the set an OutputConfig
// list names.
//
// Grounded on internal/output's console-dashboard idiom (final-summary
// formatting) and grafana-k6's stdlib-based csv/json output writers —
// no templating or dashboard library appears anywhere in the pack for
// this concern, so these stay on encoding/csv and encoding/json.
package sink

import (
	"fmt"

	"github.com/vustorm/vustorm/internal/diag"
	"github.com/vustorm/vustorm/internal/metrics"
	"github.com/vustorm/vustorm/internal/testplan"
)

// Build constructs one metrics.Sink per enabled OutputConfig entry.
// Unrecognized types are logged and skipped rather than treated as
// fatal, mirroring spec.md §6's "sinks are independent of the core
// pipeline" framing.
func Build(outputs []testplan.OutputConfig, log *diag.Logger) ([]metrics.Sink, error) {
	if log == nil {
		log = diag.Default()
	}

	var sinks []metrics.Sink
	for _, o := range outputs {
		if !o.EnabledOrDefault() {
			continue
		}
		switch o.Type {
		case "console", "":
			sinks = append(sinks, NewConsole(log))
		case "csv":
			path, _ := o.Options["path"].(string)
			if path == "" {
				path = "results.csv"
			}
			s, err := NewCSV(path)
			if err != nil {
				return nil, fmt.Errorf("csv sink: %w", err)
			}
			sinks = append(sinks, s)
		case "json":
			path, _ := o.Options["path"].(string)
			if path == "" {
				path = "results.jsonl"
			}
			s, err := NewJSON(path)
			if err != nil {
				return nil, fmt.Errorf("json sink: %w", err)
			}
			sinks = append(sinks, s)
		default:
			log.Warn("sink: output type %q has no reference implementation, skipping", o.Type)
		}
	}
	return sinks, nil
}
