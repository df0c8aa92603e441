package store

import "sort"

// Selection is the set of record ids checked by the user. Membership and
// toggling are O(1); IDs preserves insertion order.
type Selection struct {
	seq  uint64
	byID map[string]uint64
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{byID: make(map[string]uint64)}
}

// Select adds id. Selecting an already selected id keeps its position.
func (s *Selection) Select(id string) {
	if _, ok := s.byID[id]; ok {
		return
	}
	s.seq++
	s.byID[id] = s.seq
}

// Deselect removes id.
func (s *Selection) Deselect(id string) {
	delete(s.byID, id)
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.IsSelected(id) {
		s.Deselect(id)
		return false
	}
	s.Select(id)
	return true
}

// SetAll replaces the selection with ids.
func (s *Selection) SetAll(ids []string) {
	s.Clear()
	for _, id := range ids {
		s.Select(id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.byID = make(map[string]uint64)
}

// IsSelected reports membership of id.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.byID) }

// IDs returns the selected ids in the order they were selected.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.byID[ids[i]] < s.byID[ids[j]] })
	return ids
}
