package datasync

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// Intent is a user action on the browser. The set is closed: every intent
// type is declared in this file and handled by Dispatch.
type Intent interface {
	isIntent()
}

type (
	// ReloadIntent refetches count and one page starting at FromIndex.
	ReloadIntent struct{ FromIndex int }
	// LoadMoreIntent fetches rows [Skip, Skip+First) into the window.
	LoadMoreIntent struct{ Skip, First int }
	// SetFilterIntent sets or clears (nil/"") one field predicate.
	SetFilterIntent struct {
		Field string
		Value any
	}
	// SetOrderIntent replaces the ordering.
	SetOrderIntent struct{ Order model.OrderBy }
	// ToggleSortIntent sorts by Field, flipping direction if already sorted by it.
	ToggleSortIntent struct{ Field string }
	// AddNodeIntent opens the new-row form, or creates a record from defaults
	// when the model has no editable fields.
	AddNodeIntent struct{}
	// CreateIntent submits a new record.
	CreateIntent struct{ Values map[string]any }
	// UpdateIntent sets one field of the record at Index.
	UpdateIntent struct {
		Field string
		Value any
		ID    string
		Index int
	}
	// DeleteIntent deletes the given records.
	DeleteIntent struct{ IDs []string }
	// DeleteSelectedIntent deletes every selected record.
	DeleteSelectedIntent struct{}
	// ImportIntent creates Records in chunks.
	ImportIntent struct{ Records []map[string]any }
	// ToggleSelectionIntent flips selection of one record.
	ToggleSelectionIntent struct{ ID string }
	// SelectAllIntent selects every loaded record, or clears the selection.
	SelectAllIntent struct{ Checked bool }
	// ToggleFiltersIntent shows or hides the filter row.
	ToggleFiltersIntent struct{}
	// ToggleNewRowIntent shows or hides the new-row form.
	ToggleNewRowIntent struct{}
	// ScrollIntent records the first visible row.
	ScrollIntent struct{ Top int }
)

func (ReloadIntent) isIntent()          {}
func (LoadMoreIntent) isIntent()        {}
func (SetFilterIntent) isIntent()       {}
func (SetOrderIntent) isIntent()        {}
func (ToggleSortIntent) isIntent()      {}
func (AddNodeIntent) isIntent()         {}
func (CreateIntent) isIntent()          {}
func (UpdateIntent) isIntent()          {}
func (DeleteIntent) isIntent()          {}
func (DeleteSelectedIntent) isIntent()  {}
func (ImportIntent) isIntent()          {}
func (ToggleSelectionIntent) isIntent() {}
func (SelectAllIntent) isIntent()       {}
func (ToggleFiltersIntent) isIntent()   {}
func (ToggleNewRowIntent) isIntent()    {}
func (ScrollIntent) isIntent()          {}

// Dispatch applies a user intent. Store-only intents take effect
// immediately and return nil; the rest return the command that performs
// their I/O.
func (c *Controller) Dispatch(in Intent) tea.Cmd {
	st := c.state
	switch in := in.(type) {
	case ReloadIntent:
		return c.Reload(in.FromIndex)
	case LoadMoreIntent:
		return c.LoadMore(in.Skip, in.First)
	case SetFilterIntent:
		return c.SetFilter(in.Field, in.Value)
	case SetOrderIntent:
		return c.SetOrderAndReload(in.Order)
	case ToggleSortIntent:
		return c.SetOrderAndReload(st.Window.Order().Next(in.Field))
	case AddNodeIntent:
		return c.AddNode()
	case CreateIntent:
		return c.Create(in.Values)
	case UpdateIntent:
		return c.Update(in.Field, in.Value, in.ID, in.Index)
	case DeleteIntent:
		return c.Delete(in.IDs)
	case DeleteSelectedIntent:
		return c.Delete(st.Selection.IDs())
	case ImportIntent:
		return c.Import(in.Records)
	case ToggleSelectionIntent:
		st.Selection.Toggle(in.ID)
	case SelectAllIntent:
		if in.Checked {
			st.Selection.SetAll(st.Window.LoadedIDs())
		} else {
			st.Selection.Clear()
		}
	case ToggleFiltersIntent:
		st.Prefs.ToggleFilters()
	case ToggleNewRowIntent:
		st.Prefs.ToggleNewRowForm()
	case ScrollIntent:
		st.Prefs.SetScrollTop(in.Top)
	default:
		panic(fmt.Sprintf("datasync: unhandled intent %T", in))
	}
	return nil
}
