// Package clock centralizes time handling for the engine: duration
// parsing, cancellable sleeps, and the think-time range format used
// throughout scenarios and steps.
package clock

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
// Returns ctx.Err() if cancelled, nil otherwise.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseDuration wraps time.ParseDuration; kept as a named entry point so
// callers don't reach into stdlib directly and so behavior (e.g. bare
// numbers meaning seconds) can be special-cased in one place.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// defaultThinkTimeMin/Max are the spec.md §4.5 fallback range used when a
// think-time string fails to parse.
const (
	defaultThinkTimeMin = 1000 * time.Millisecond
	defaultThinkTimeMax = 3000 * time.Millisecond
)

// ThinkTime resolves a think-time spec to a concrete duration.
//
// A number means seconds. A string is either a single duration ("5s",
// "500ms") or a range ("1-3s", "100-500ms"), sampled uniformly in
// milliseconds. On parse failure it falls back to a uniform sample in
// [1000ms, 3000ms] and reports that a fallback occurred via ok=false.
func ThinkTime(spec interface{}) (d time.Duration, ok bool) {
	switch v := spec.(type) {
	case nil:
		return 0, true
	case time.Duration:
		return v, true
	case int:
		return time.Duration(v) * time.Second, true
	case float64:
		return time.Duration(v * float64(time.Second)), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		if lo, hi, isRange := splitRange(s); isRange {
			loDur, err1 := ParseDuration(lo)
			hiDur, err2 := ParseDuration(hi)
			if err1 != nil || err2 != nil || hiDur < loDur {
				return fallbackThinkTime(), false
			}
			return sampleBetween(loDur, hiDur), true
		}
		dur, err := ParseDuration(s)
		if err != nil {
			return fallbackThinkTime(), false
		}
		return dur, true
	default:
		return fallbackThinkTime(), false
	}
}

// splitRange detects the "1-3s" / "100-500ms" range form. The unit
// suffix (if present) is shared by both bounds when only the upper bound
// carries one, e.g. "1-3s" => ("1s", "3s").
func splitRange(s string) (lo, hi string, isRange bool) {
	idx := strings.IndexByte(s, '-')
	if idx <= 0 || idx == len(s)-1 {
		return "", "", false
	}
	loPart := s[:idx]
	hiPart := s[idx+1:]

	if _, err := strconv.ParseFloat(loPart, 64); err == nil {
		unit := strings.TrimLeft(hiPart, "0123456789.")
		if unit != "" {
			return loPart + unit, hiPart, true
		}
	}
	return loPart, hiPart, true
}

func sampleBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	span := hi - lo
	return lo + time.Duration(rand.Int63n(int64(span)+1))
}

func fallbackThinkTime() time.Duration {
	return sampleBetween(defaultThinkTimeMin, defaultThinkTimeMax)
}

// EffectiveThinkTime returns the first defined (non-nil) of step, scenario,
// global think-time specs, per spec.md §4.5/§8 property 7.
func EffectiveThinkTime(step, scenario, global interface{}) (time.Duration, bool) {
	for _, spec := range []interface{}{step, scenario, global} {
		if spec == nil {
			continue
		}
		if s, isStr := spec.(string); isStr && s == "" {
			continue
		}
		return ThinkTime(spec)
	}
	return 0, true
}
