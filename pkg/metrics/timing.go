// Package metrics records backend round-trip timings and a few counters.
// Backend calls run on tea.Cmd goroutines, so every value is atomic.
// Collection is on unless GCB_METRICS=0; `gcb count --timings` prints it.
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled = os.Getenv("GCB_METRICS") != "0"

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled = e
}

// TimingMetric accumulates durations of one kind of call.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	min   atomic.Int64 // 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	for old := m.max.Load(); ns > old; old = m.max.Load() {
		if m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for old := m.min.Load(); old == 0 || ns < old; old = m.min.Load() {
		if m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Stats snapshots the metric.
func (m *TimingMetric) Stats() TimingStats {
	s := TimingStats{
		Name:  m.name,
		Count: m.count.Load(),
		MaxMs: float64(m.max.Load()) / 1e6,
		MinMs: float64(m.min.Load()) / 1e6,
	}
	if s.Count > 0 {
		s.AvgMs = float64(m.total.Load()/s.Count) / 1e6
	}
	return s
}

func (m *TimingMetric) reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

// TimingStats is a snapshot of a TimingMetric.
type TimingStats struct {
	Name  string  `json:"name"`
	Count int64   `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
	MinMs float64 `json:"min_ms"`
}

// Timer starts timing m; call the result to record the sample:
//
//	defer metrics.Timer(metrics.FetchPage)()
func Timer(m *TimingMetric) func() {
	if !enabled || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

var (
	FetchCount  = newTimingMetric("fetch_count")
	FetchPage   = newTimingMetric("fetch_page")
	Mutation    = newTimingMetric("mutation")
	BatchDelete = newTimingMetric("batch_delete")
	ImportChunk = newTimingMetric("import_chunk")
	SchemaLoad  = newTimingMetric("schema_load")
	UIRender    = newTimingMetric("ui_render")

	timings = []*TimingMetric{FetchCount, FetchPage, Mutation, BatchDelete, ImportChunk, SchemaLoad, UIRender}
)

// ResetAll clears every timing and counter.
func ResetAll() {
	for _, m := range timings {
		m.reset()
	}
	for _, c := range counters {
		c.n.Store(0)
	}
}

// AllTimingStats returns the metrics that have at least one sample.
func AllTimingStats() []TimingStats {
	var stats []TimingStats
	for _, m := range timings {
		if s := m.Stats(); s.Count > 0 {
			stats = append(stats, s)
		}
	}
	return stats
}
