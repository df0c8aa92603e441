package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
)

// confirmAction is what runs when a confirm dialog is accepted.
type confirmAction int

const (
	confirmDeleteSelected confirmAction = iota
	confirmDeleteRow
	confirmDiscardAndSwitch
	confirmDiscardAndQuit
)

// ConfirmDialog is a yes/no question rendered with huh. y, n and esc
// answer immediately; enter submits the highlighted choice.
type ConfirmDialog struct {
	form   *huh.Form
	value  *bool
	action confirmAction
	// payload of the action: ids to delete or model to open
	ids    []string
	target string

	answered bool
	accepted bool
	theme    Theme
}

// NewConfirmDialog builds a dialog for action.
func NewConfirmDialog(action confirmAction, title, description, affirmative string, theme Theme) ConfirmDialog {
	value := new(bool)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative(affirmative).
				Negative("Cancel").
				Value(value),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false)
	return ConfirmDialog{form: form, value: value, action: action, theme: theme}
}

// Init starts the form.
func (d ConfirmDialog) Init() tea.Cmd {
	return d.form.Init()
}

// Update forwards every message to the form so its internal navigation
// messages arrive.
func (d ConfirmDialog) Update(msg tea.Msg) (ConfirmDialog, tea.Cmd) {
	if d.answered {
		return d, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			d.answered, d.accepted = true, true
			return d, nil
		case "n", "N", "esc", "q":
			d.answered, d.accepted = true, false
			return d, nil
		}
	}
	fm, cmd := d.form.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		d.form = f
	}
	switch d.form.State {
	case huh.StateCompleted:
		d.answered, d.accepted = true, *d.value
	case huh.StateAborted:
		d.answered, d.accepted = true, false
	}
	return d, cmd
}

// Answered reports whether the user has decided.
func (d ConfirmDialog) Answered() bool { return d.answered }

// Accepted reports whether the answer was yes.
func (d ConfirmDialog) Accepted() bool { return d.answered && d.accepted }

// View renders the dialog centered in width x height.
func (d ConfirmDialog) View(width, height int) string {
	box := d.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDanger).
		Padding(1, 2).
		Render(d.form.View() + "\n" + d.theme.MutedText.Render("[y] yes  [n/esc] no"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// deleteDialog asks before deleting ids.
func deleteDialog(ids []string, selection bool, theme Theme) ConfirmDialog {
	action := confirmDeleteRow
	if selection {
		action = confirmDeleteSelected
	}
	noun := "node"
	if len(ids) != 1 {
		noun = "nodes"
	}
	d := NewConfirmDialog(action,
		"Delete "+formatCount(len(ids))+" "+noun+"?",
		"This cannot be undone.",
		"Delete", theme)
	d.ids = ids
	return d
}

// discardDialog guards leaving the view while the new-row form is open.
func discardDialog(action confirmAction, target string, theme Theme) ConfirmDialog {
	d := NewConfirmDialog(action,
		"Discard unsaved changes?",
		"The new node has not been saved.",
		"Discard", theme)
	d.target = target
	return d
}

// intent converts an accepted delete dialog into the controller intent. It
// deletes the ids the dialog was opened with, even if a reload cleared the
// selection while the dialog was shown.
func (d ConfirmDialog) intent() datasync.Intent {
	return datasync.DeleteIntent{IDs: d.ids}
}
