package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the table view.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Home      key.Binding
	End       key.Binding
	Edit      key.Binding
	Select    key.Binding
	SelectAll key.Binding
	Sort      key.Binding
	Filters   key.Binding
	Filter    key.Binding
	AddNode   key.Binding
	Delete    key.Binding
	Refresh   key.Binding
	Models    key.Binding
	ReloadRow key.Binding
	Revert    key.Binding
	Import    key.Binding
	YankID    key.Binding
	YankCell  key.Binding
	Focus     key.Binding
	Detail    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev column")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next column")),
		PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Home:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),
		End:       key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last row")),
		Edit:      key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit cell")),
		Select:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		SelectAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		Sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
		Filters:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter row")),
		Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter column")),
		AddNode:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "add node")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Models:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh models")),
		ReloadRow: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "reload row")),
		Revert:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "revert")),
		Import:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import json")),
		YankID:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		YankCell:  key.NewBinding(key.WithKeys("Y"), key.WithHelp("Y", "copy cell")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "models")),
		Detail:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "detail")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Select, k.AddNode, k.Delete, k.Filters, k.Sort, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Edit, k.Select, k.SelectAll, k.AddNode, k.Delete, k.Import},
		{k.Sort, k.Filters, k.Filter, k.Refresh, k.ReloadRow, k.Revert},
		{k.Models, k.Focus, k.Detail, k.YankID, k.YankCell, k.Help, k.Quit},
	}
}
