package store

// State is the complete browser state for one model view.
type State struct {
	Window    *Window
	Selection *Selection
	Prefs     *Prefs
}

// NewState returns a freshly reset state.
func NewState() *State {
	return &State{
		Window:    NewWindow(),
		Selection: NewSelection(),
		Prefs:     NewPrefs(),
	}
}

// Reset clears all three stores, as happens when the view is left.
func (s *State) Reset() {
	s.Window.ResetAll()
	s.Selection.Clear()
	s.Prefs.Reset()
}

// AllLoadedSelected reports whether every loaded record is selected and at
// least one is.
func (s *State) AllLoadedSelected() bool {
	n := s.Window.LoadedCount()
	return n > 0 && s.Selection.Len() == n
}
