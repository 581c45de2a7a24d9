// Package metrics provides in-memory runtime statistics collection for the
// analysis pipeline.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated raw metrics for one pipeline operation.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds  float64                      `json:"uptime_seconds"`
	JobsStarted    int64                        `json:"jobs_started"`
	JobsCompleted  int64                        `json:"jobs_completed"`
	JobsFailed     int64                        `json:"jobs_failed"`
	PipelineStages map[string]OperationSnapshot `json:"pipeline_stages,omitempty"`
}

// Operation names for the collector: one per pipeline stage plus the agent's
// LLM call.
const (
	OpUpload    = "upload"
	OpFace      = "face"
	OpML        = "ml"
	OpFrequency = "frequency"
	OpExif      = "exif"
	OpReverse   = "reverse"
	OpAgent     = "agent"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	jobsStarted   int64
	jobsCompleted int64
	jobsFailed    int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records the duration of one run of an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// JobStarted counts a newly submitted analysis job.
func (c *Collector) JobStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsStarted++
}

// JobFinished counts a terminated job.
func (c *Collector) JobFinished(failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if failed {
		c.jobsFailed++
	} else {
		c.jobsCompleted++
	}
}

// Snapshot returns computed statistics for all recorded operations.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		JobsStarted:   c.jobsStarted,
		JobsCompleted: c.jobsCompleted,
		JobsFailed:    c.jobsFailed,
	}

	if len(c.ops) > 0 {
		snap.PipelineStages = make(map[string]OperationSnapshot, len(c.ops))
		for op, m := range c.ops {
			if m.Count == 0 {
				continue
			}
			snap.PipelineStages[op] = OperationSnapshot{
				Count:       m.Count,
				TotalTimeMs: m.TotalTime.Milliseconds(),
				AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
				MinTimeMs:   m.MinTime.Milliseconds(),
				MaxTimeMs:   m.MaxTime.Milliseconds(),
			}
		}
	}

	return snap
}
