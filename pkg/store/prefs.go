package store

// Prefs holds the ephemeral view flags of the browser. The zero value is not
// the reset state; use NewPrefs.
type Prefs struct {
	filtersVisible    bool
	newRowFormVisible bool
	scrollTop         int
	loading           bool
}

// NewPrefs returns preferences in their reset state.
func NewPrefs() *Prefs {
	p := &Prefs{}
	p.Reset()
	return p
}

// Reset restores filtersVisible=false, newRowFormVisible=false, scrollTop=0
// and loading=true.
func (p *Prefs) Reset() {
	*p = Prefs{loading: true}
}

// FiltersVisible reports whether the filter row is shown.
func (p *Prefs) FiltersVisible() bool { return p.filtersVisible }

// NewRowFormVisible reports whether the new-row form is open.
func (p *Prefs) NewRowFormVisible() bool { return p.newRowFormVisible }

// ScrollTop is the index of the first visible row.
func (p *Prefs) ScrollTop() int { return p.scrollTop }

// Loading gates rendering of the rows while a full reload is in flight.
func (p *Prefs) Loading() bool { return p.loading }

func (p *Prefs) ToggleFilters() { p.filtersVisible = !p.filtersVisible }

func (p *Prefs) ToggleNewRowForm() { p.newRowFormVisible = !p.newRowFormVisible }

func (p *Prefs) SetNewRowFormVisible(v bool) { p.newRowFormVisible = v }

func (p *Prefs) SetLoading(v bool) { p.loading = v }

// SetScrollTop sets the scroll offset, clamping negatives to zero.
func (p *Prefs) SetScrollTop(n int) {
	if n < 0 {
		n = 0
	}
	p.scrollTop = n
}
