package testutil

import (
	"testing"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/store"
)

// AssertItemCount verifies the window's total row count.
func AssertItemCount(t *testing.T, w *store.Window, expected int) {
	t.Helper()
	if w.ItemCount() != expected {
		t.Errorf("expected item count %d, got %d", expected, w.ItemCount())
	}
}

// AssertLoadedRange verifies that exactly the slots in [start, stop) are loaded.
func AssertLoadedRange(t *testing.T, w *store.Window, start, stop int) {
	t.Helper()
	for i, loaded := range w.LoadedList() {
		want := i >= start && i < stop
		if loaded != want {
			t.Errorf("slot %d: loaded=%v, want %v", i, loaded, want)
			return
		}
	}
}

// AssertNoDuplicateIDs verifies all loaded record IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, records []*model.Record) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.ID] {
			t.Errorf("duplicate record ID: %s", r.ID)
		}
		seen[r.ID] = true
	}
}

// GetIDs extracts IDs from records.
func GetIDs(records []*model.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
