package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() { c.Add(1) }

// Add adds delta.
func (c *Counter) Add(delta int64) {
	if enabled {
		c.n.Add(delta)
	}
}

func (c *Counter) Name() string { return c.name }
func (c *Counter) Value() int64 { return c.n.Load() }

var (
	// StaleDiscards counts responses dropped because a newer reload started.
	StaleDiscards = &Counter{name: "stale_discards"}
	// BatchFailures counts failed items of delete and import batches.
	BatchFailures = &Counter{name: "batch_failures"}
	// Reloads counts full window reloads.
	Reloads = &Counter{name: "reloads"}

	counters = []*Counter{StaleDiscards, BatchFailures, Reloads}
)

// Counters returns every counter with a non-zero value.
func Counters() []*Counter {
	var out []*Counter
	for _, c := range counters {
		if c.Value() > 0 {
			out = append(out, c)
		}
	}
	return out
}
