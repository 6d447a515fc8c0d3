package metrics

import (
	"sort"
	"time"
)

const timelineBucketSeconds = 5

// GetSummary computes the single end-of-run Summary record as a pure
// function over the Collector's accumulated state (spec.md §4.3).
// Percentiles are taken from the reservoir only, never from the
// (possibly truncated) stored-results list, per spec.md §9.
func (c *Collector) GetSummary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.startTime).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}

	successRate := 0.0
	if c.stats.NTotal > 0 {
		successRate = 100 * float64(c.stats.NSuccess) / float64(c.stats.NTotal)
	}

	avg := 0.0
	if c.stats.NSuccess > 0 {
		avg = c.stats.SumDuration / float64(c.stats.NSuccess)
	}

	var totalBytes int64
	for _, r := range c.stored {
		if r.BytesReceived != nil {
			totalBytes += *r.BytesReceived
		}
	}

	summary := Summary{
		TotalRequests:       c.stats.NTotal,
		SuccessRequests:     c.stats.NSuccess,
		FailedRequests:      c.stats.NFail,
		SuccessRate:         successRate,
		AvgDurationMS:       avg,
		MinDurationMS:       c.stats.Min,
		MaxDurationMS:       c.stats.Max,
		Percentiles:         c.reservoir.Percentiles(),
		RPS:                 float64(c.stats.NTotal) / elapsed,
		BytesPerSecond:      float64(totalBytes) / elapsed,
		StatusDistribution:  copyStatusCounts(c.stats.StatusCounts),
		ErrorDistribution:   errorDistribution(c.stats.ErrorCounts),
		ErrorDetails:        errorDetails(c.stats.ErrorCounts),
		StepStatistics:      stepStatistics(c.stats.StepStats),
		VURampUpEvents:      append([]VUStartEvent(nil), c.stats.VUStarts...),
		Timeline:            buildTimeline(c.stored, c.stats.VUStarts, c.startTime),
		ElapsedSeconds:      elapsed,
	}
	return summary
}

func copyStatusCounts(m map[int]int64) map[int]int64 {
	out := make(map[int]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func errorDistribution(groups map[errorKey]*errorGroup) map[string]int64 {
	out := make(map[string]int64, len(groups))
	for k, g := range groups {
		out[k.Message] += g.Count
	}
	return out
}

// errorDetails returns one ErrorDetail per distinct (scenario, step,
// status, message) group, sorted by count descending (spec.md §6).
func errorDetails(groups map[errorKey]*errorGroup) []ErrorDetail {
	details := make([]ErrorDetail, 0, len(groups))
	for k, g := range groups {
		details = append(details, ErrorDetail{
			Scenario: k.Scenario,
			Step:     k.Step,
			Status:   k.Status,
			Message:  k.Message,
			Count:    g.Count,
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Count > details[j].Count })
	return details
}

func stepStatistics(stats map[string]*stepStats) []StepStatistic {
	out := make([]StepStatistic, 0, len(stats))
	for _, s := range stats {
		successRate := 0.0
		if s.Count > 0 {
			successRate = 100 * float64(s.SuccessN) / float64(s.Count)
		}
		avg := 0.0
		if s.SuccessN > 0 {
			avg = s.SumDuration / float64(s.SuccessN)
		}
		out = append(out, StepStatistic{
			Scenario:      s.Scenario,
			StepName:      s.StepName,
			Count:         s.Count,
			SuccessRate:   successRate,
			AvgDurationMS: avg,
			MinDurationMS: s.Min,
			MaxDurationMS: s.Max,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].StepName < out[j].StepName
	})
	return out
}

// buildTimeline groups stored results into 5-second buckets. active_vus
// for a bucket counts VU-start events with t <= bucket_start (spec.md
// §4.3).
func buildTimeline(results []Result, vuStarts []VUStartEvent, startTime time.Time) []TimelineBucket {
	if len(results) == 0 {
		return nil
	}

	startNano := startTime.UnixNano()
	bucketNano := int64(timelineBucketSeconds * time.Second)

	type accum struct {
		requests    int64
		successN    int64
		sumDuration float64
	}
	buckets := make(map[int64]*accum)
	var order []int64

	for _, r := range results {
		offset := r.Timestamp - startNano
		if offset < 0 {
			offset = 0
		}
		bucketIdx := offset / bucketNano
		if _, ok := buckets[bucketIdx]; !ok {
			buckets[bucketIdx] = &accum{}
			order = append(order, bucketIdx)
		}
		a := buckets[bucketIdx]
		a.requests++
		if r.Success {
			a.successN++
			a.sumDuration += r.DurationMS
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	timeline := make([]TimelineBucket, 0, len(order))
	for _, idx := range order {
		a := buckets[idx]
		bucketStart := startNano + idx*bucketNano

		activeVUs := 0
		for _, v := range vuStarts {
			if v.StartedAt <= bucketStart {
				activeVUs++
			}
		}

		successRate := 0.0
		avg := 0.0
		if a.requests > 0 {
			successRate = 100 * float64(a.successN) / float64(a.requests)
		}
		if a.successN > 0 {
			avg = a.sumDuration / float64(a.successN)
		}

		timeline = append(timeline, TimelineBucket{
			BucketStart:   bucketStart,
			ActiveVUs:     activeVUs,
			Requests:      a.requests,
			AvgDurationMS: avg,
			SuccessRate:   successRate,
			Throughput:    float64(a.requests) / float64(timelineBucketSeconds),
		})
	}
	return timeline
}
