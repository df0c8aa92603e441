package ui

import (
	"slices"

	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
)

const (
	// DefaultMinBatch is the smallest page requested for rows scrolled into view.
	DefaultMinBatch = 50
	// MaxRetries bounds how often one failed range is released for another
	// request within a generation.
	MaxRetries = 3
)

// InfiniteLoader decides which rows to fetch when the table needs rows that
// are not loaded. Ranges already requested in the current generation are
// not requested again until Release hands them back; a new generation
// forgets them.
type InfiniteLoader struct {
	MinBatch int

	gen      uint64
	pending  []store.Range
	attempts map[int]int
}

// NewInfiniteLoader creates a loader with DefaultMinBatch.
func NewInfiniteLoader() *InfiniteLoader {
	return &InfiniteLoader{MinBatch: DefaultMinBatch}
}

// LoadMoreRows returns the intents that cover the unloaded, unrequested
// rows of [start, stop). Each request starts at the first missing row and
// spans at least MinBatch rows, clamped to the item count.
func (l *InfiniteLoader) LoadMoreRows(w *store.Window, gen uint64, start, stop int) []datasync.LoadMoreIntent {
	if gen != l.gen {
		l.gen = gen
		l.Reset()
	}
	batch := l.MinBatch
	if batch <= 0 {
		batch = DefaultMinBatch
	}

	var out []datasync.LoadMoreIntent
	for _, r := range w.UnloadedRanges(start, stop) {
		i := r.Start
		for i < r.Stop {
			if l.isPending(i) {
				i++
				continue
			}
			end := min(i+max(r.Stop-i, batch), w.ItemCount())
			l.pending = append(l.pending, store.Range{Start: i, Stop: end})
			out = append(out, datasync.LoadMoreIntent{Skip: i, First: end - i})
			i = end
		}
	}
	return out
}

// Pending returns the ranges requested in the current generation.
func (l *InfiniteLoader) Pending() []store.Range {
	return slices.Clone(l.pending)
}

// Release forgets the given ranges of generation gen so the rows they cover
// are requested again the next time they are in view. A range is released at
// most MaxRetries times per generation; it reports how many were released.
func (l *InfiniteLoader) Release(gen uint64, ranges []store.Range) int {
	if gen != l.gen {
		return 0
	}
	if l.attempts == nil {
		l.attempts = make(map[int]int)
	}
	released := 0
	for _, r := range ranges {
		if l.attempts[r.Start] >= MaxRetries {
			continue
		}
		kept := l.pending[:0]
		found := false
		for _, p := range l.pending {
			if p == r {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		l.pending = kept
		if found {
			l.attempts[r.Start]++
			released++
		}
	}
	return released
}

// Reset forgets every requested range.
func (l *InfiniteLoader) Reset() {
	l.pending = nil
	l.attempts = nil
}

func (l *InfiniteLoader) isPending(i int) bool {
	for _, r := range l.pending {
		if i >= r.Start && i < r.Stop {
			return true
		}
	}
	return false
}
