// Package store holds the in-memory state behind the data browser: the
// paged record window, the row selection and the view preferences.
//
// Stores never perform I/O and never reload themselves. They are owned by a
// single datasync.Controller and mutated only from the bubbletea update loop,
// so they carry no locks.
package store

import "github.com/vanderheijden86/gcbrowse/pkg/model"

// Window is the partially loaded view of a model's records.
//
// len(loaded) == itemCount after every SetItemCount; nodes is dense with nil
// placeholders at unloaded slots.
type Window struct {
	itemCount int
	nodes     []*model.Record
	loaded    []bool
	order     model.OrderBy
	filter    model.Filter
}

// NewWindow returns an empty window ordered by id ascending.
func NewWindow() *Window {
	return &Window{order: model.DefaultOrder(), filter: model.Filter{}}
}

// SetItemCount sets the total row count and resets all loaded flags.
// Records already held in slots below n are kept until overwritten.
func (w *Window) SetItemCount(n int) {
	if n < 0 {
		n = 0
	}
	w.itemCount = n
	w.loaded = make([]bool, n)
	if len(w.nodes) > n {
		for i := n; i < len(w.nodes); i++ {
			w.nodes[i] = nil
		}
		w.nodes = w.nodes[:n]
	}
	for len(w.nodes) < n {
		w.nodes = append(w.nodes, nil)
	}
}

// SetOrder replaces the ordering and invalidates every loaded slot.
func (w *Window) SetOrder(o model.OrderBy) {
	if o.Direction == "" {
		o.Direction = model.ASC
	}
	w.order = o
	w.Invalidate()
}

// SetFilter replaces the filter and invalidates every loaded slot.
func (w *Window) SetFilter(f model.Filter) {
	if f == nil {
		f = model.Filter{}
	}
	w.filter = f.Clone()
	w.Invalidate()
}

// Invalidate marks every slot unloaded and drops the held records.
func (w *Window) Invalidate() {
	for i := range w.loaded {
		w.loaded[i] = false
	}
	for i := range w.nodes {
		w.nodes[i] = nil
	}
}

// LoadPage stores records at [skip, skip+len(records)) and marks those slots
// loaded. Indices outside [0, itemCount) are ignored. It returns the number
// of slots written.
func (w *Window) LoadPage(skip int, records []*model.Record) int {
	written := 0
	for i, r := range records {
		idx := skip + i
		if idx < 0 || idx >= w.itemCount || r == nil {
			continue
		}
		w.nodes[idx] = r
		w.loaded[idx] = true
		written++
	}
	return written
}

// ApplyUpdate sets one field of the loaded record with the given id.
// It reports false, and changes nothing, when the id is not loaded.
func (w *Window) ApplyUpdate(id, field string, value any) bool {
	idx := w.IndexOf(id)
	if idx < 0 {
		return false
	}
	r := w.nodes[idx].Clone()
	r.Set(field, value)
	w.nodes[idx] = r
	return true
}

// Remove drops the loaded record with the given id, shifting later slots up
// and decrementing the item count.
func (w *Window) Remove(id string) bool {
	idx := w.IndexOf(id)
	if idx < 0 {
		return false
	}
	w.nodes = append(w.nodes[:idx], w.nodes[idx+1:]...)
	w.loaded = append(w.loaded[:idx], w.loaded[idx+1:]...)
	w.itemCount--
	return true
}

// ResetAll clears records, flags, count, filter and order.
func (w *Window) ResetAll() {
	w.itemCount = 0
	w.nodes = nil
	w.loaded = nil
	w.order = model.DefaultOrder()
	w.filter = model.Filter{}
}

// ItemCount is the last count set.
func (w *Window) ItemCount() int { return w.itemCount }

// Order is the active ordering.
func (w *Window) Order() model.OrderBy { return w.order }

// Filter returns a copy of the active filter.
func (w *Window) Filter() model.Filter { return w.filter.Clone() }

// IsLoaded reports whether slot i holds a record.
func (w *Window) IsLoaded(i int) bool {
	return i >= 0 && i < len(w.loaded) && w.loaded[i]
}

// Record returns the record at slot i, or nil when unloaded.
func (w *Window) Record(i int) *model.Record {
	if !w.IsLoaded(i) {
		return nil
	}
	return w.nodes[i]
}

// LoadedList returns a copy of the loaded flags.
func (w *Window) LoadedList() []bool {
	out := make([]bool, len(w.loaded))
	copy(out, w.loaded)
	return out
}

// LoadedCount returns the number of loaded slots.
func (w *Window) LoadedCount() int {
	n := 0
	for _, l := range w.loaded {
		if l {
			n++
		}
	}
	return n
}

// LoadedRecords returns the loaded records in slot order.
func (w *Window) LoadedRecords() []*model.Record {
	var out []*model.Record
	for i, l := range w.loaded {
		if l {
			out = append(out, w.nodes[i])
		}
	}
	return out
}

// LoadedIDs returns the ids of the loaded records in slot order.
func (w *Window) LoadedIDs() []string {
	var out []string
	for _, r := range w.LoadedRecords() {
		out = append(out, r.ID)
	}
	return out
}

// IndexOf returns the slot of the loaded record with the given id, or -1.
func (w *Window) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, l := range w.loaded {
		if l && w.nodes[i] != nil && w.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Range is a half-open slot interval [Start, Stop).
type Range struct {
	Start, Stop int
}

// Len returns the number of slots in the range.
func (r Range) Len() int { return r.Stop - r.Start }

// UnloadedRanges returns the maximal runs of unloaded slots within
// [start, stop), clamped to the item count.
func (w *Window) UnloadedRanges(start, stop int) []Range {
	if start < 0 {
		start = 0
	}
	if stop > w.itemCount {
		stop = w.itemCount
	}
	var out []Range
	runStart := -1
	for i := start; i < stop; i++ {
		if !w.loaded[i] {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			out = append(out, Range{runStart, i})
			runStart = -1
		}
	}
	if runStart >= 0 {
		out = append(out, Range{runStart, stop})
	}
	return out
}
