package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
	"github.com/vanderheijden86/gcbrowse/pkg/relations"
)

// SwitchModelMsg is sent when the user opens a model from the side nav.
type SwitchModelMsg struct {
	Model model.Model
}

// AddModelMsg asks the schema backend to create a model.
type AddModelMsg struct {
	Name string
}

// collapsedModels is the number of models listed while the nav is not focused.
const collapsedModels = 3

// sideNavSections are the static entries below the model list.
var sideNavSections = []string{"Relations", "Actions", "Playground", "Project Settings"}

// SideNavModel lists the models of the project with their item counts.
type SideNavModel struct {
	project  string
	models   []model.Model
	active   string
	cursor   int // index into models; len(models) is the add-model row
	focused  bool
	expanded bool

	adding    bool
	nameInput textinput.Model
	inputErr  string

	summary []string
	width   int
	height  int
	theme   Theme
}

// NewSideNav creates an empty side nav for project.
func NewSideNav(project string, theme Theme) SideNavModel {
	ti := textinput.New()
	ti.Placeholder = "ModelName"
	ti.CharLimit = 64
	ti.Width = 20
	return SideNavModel{project: project, nameInput: ti, theme: theme, summary: relations.Build(nil).Summary()}
}

// SetModels replaces the model list, sorted by name.
func (m *SideNavModel) SetModels(models []model.Model) {
	sorted := append([]model.Model(nil), models...)
	model.SortModels(sorted)
	m.models = sorted
	m.summary = relations.Build(sorted).Summary()
	if m.cursor > len(m.models) {
		m.cursor = len(m.models)
	}
	if i := m.indexOf(m.active); i >= 0 && !m.focused {
		m.cursor = i
	}
}

// Models returns the listed models.
func (m SideNavModel) Models() []model.Model { return m.models }

// SetActive marks the model being browsed.
func (m *SideNavModel) SetActive(name string) {
	m.active = name
	if i := m.indexOf(name); i >= 0 {
		m.cursor = i
	}
}

// SetCount updates the item count of one model after a reload.
func (m *SideNavModel) SetCount(name string, n int) {
	if i := m.indexOf(name); i >= 0 {
		m.models[i].ItemCount = n
	}
}

// Focus gives the nav keyboard focus, which also expands the list.
func (m *SideNavModel) Focus() { m.focused = true }

// Blur returns focus to the table.
func (m *SideNavModel) Blur() {
	m.focused = false
	m.expanded = false
	m.stopAdding()
}

// Focused reports whether the nav has focus.
func (m SideNavModel) Focused() bool { return m.focused }

// Adding reports whether the add-model input is open.
func (m SideNavModel) Adding() bool { return m.adding }

// SetSize updates the nav dimensions.
func (m *SideNavModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetAddError shows a failure of the last add-model request.
func (m *SideNavModel) SetAddError(msg string) { m.inputErr = msg }

func (m SideNavModel) indexOf(name string) int {
	for i, md := range m.models {
		if md.Name == name {
			return i
		}
	}
	return -1
}

func (m *SideNavModel) stopAdding() {
	m.adding = false
	m.nameInput.SetValue("")
	m.nameInput.Blur()
}

// Update handles keys while the nav is focused.
func (m SideNavModel) Update(msg tea.Msg) (SideNavModel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	if m.adding {
		return m.updateAdding(key)
	}

	switch key.String() {
	case "j", "down":
		if m.cursor < len(m.models) {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.models)
	case ".", "…":
		m.expanded = !m.expanded
	case "+", "a":
		m.cursor = len(m.models)
		return m.startAdding()
	case "enter", "l":
		if m.cursor == len(m.models) {
			return m.startAdding()
		}
		if m.cursor < len(m.models) {
			md := m.models[m.cursor]
			return m, func() tea.Msg { return SwitchModelMsg{Model: md} }
		}
	}
	return m, nil
}

func (m SideNavModel) startAdding() (SideNavModel, tea.Cmd) {
	m.adding = true
	m.inputErr = ""
	m.nameInput.SetValue("")
	return m, m.nameInput.Focus()
}

func (m SideNavModel) updateAdding(key tea.KeyMsg) (SideNavModel, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.stopAdding()
		m.inputErr = ""
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.nameInput.Value())
		if !model.ValidateModelName(name) {
			m.inputErr = "Model names start with a capital letter and contain only letters and digits"
			return m, nil
		}
		if m.indexOf(name) >= 0 {
			m.inputErr = fmt.Sprintf("%s already exists", name)
			return m, nil
		}
		m.stopAdding()
		m.inputErr = ""
		return m, func() tea.Msg { return AddModelMsg{Name: name} }
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(key)
	m.inputErr = ""
	return m, cmd
}

// visibleModels returns the model indices to list. The list collapses to
// collapsedModels entries, always keeping the active model, unless the
// nav is focused or expanded.
func (m SideNavModel) visibleModels() (idx []int, hidden int) {
	if m.focused || m.expanded || len(m.models) <= collapsedModels {
		for i := range m.models {
			idx = append(idx, i)
		}
		return idx, 0
	}
	active := m.indexOf(m.active)
	for i := range m.models {
		if len(idx) < collapsedModels || i == active {
			idx = append(idx, i)
		}
	}
	if len(idx) > collapsedModels && active >= 0 {
		// drop the last non-active entry to make room for the active one
		for j := len(idx) - 2; j >= 0; j-- {
			if idx[j] != active {
				idx = append(idx[:j], idx[j+1:]...)
				break
			}
		}
	}
	return idx, len(m.models) - len(idx)
}

// View renders the nav as a bordered panel.
func (m SideNavModel) View() string {
	t := m.theme
	r := t.Renderer
	inner := max(m.width-4, 10)

	var b strings.Builder
	b.WriteString(t.PrimaryBold.Render(truncate(m.project, inner)))
	b.WriteString("\n")
	b.WriteString(t.SecondaryText.Render("Models"))
	b.WriteString("\n")

	idx, hidden := m.visibleModels()
	for _, i := range idx {
		md := m.models[i]
		badge := RenderCountBadge(md.ItemCount, md.Name == m.active)
		name := truncate(md.Name, inner-lipgloss.Width(badge)-3)
		line := padRight(name, inner-lipgloss.Width(badge)-2) + " " + badge
		style := r.NewStyle()
		if md.Name == m.active {
			style = style.Foreground(t.Primary).Bold(true)
		}
		if m.focused && i == m.cursor {
			style = t.Selected
		}
		b.WriteString(style.Render("  " + line))
		b.WriteString("\n")
	}
	if hidden > 0 {
		b.WriteString(t.MutedText.Render(fmt.Sprintf("  … %d more", hidden)))
		b.WriteString("\n")
	}

	if m.adding {
		b.WriteString("  " + m.nameInput.View())
		b.WriteString("\n")
	} else {
		add := "  + Add model"
		if m.focused && m.cursor == len(m.models) {
			b.WriteString(t.Selected.Render(add))
		} else {
			b.WriteString(t.MutedText.Render(add))
		}
		b.WriteString("\n")
	}
	if m.inputErr != "" {
		b.WriteString(r.NewStyle().Foreground(ColorDanger).Width(inner).Render(m.inputErr))
		b.WriteString("\n")
	}

	for _, section := range sideNavSections {
		b.WriteString("\n")
		b.WriteString(t.SecondaryText.Render(section))
		if section == "Relations" {
			b.WriteString("\n")
			for _, line := range m.summary {
				b.WriteString(t.MutedText.Render("  " + truncate(line, inner-2)))
				b.WriteString("\n")
			}
		}
	}

	style := PanelStyle
	if m.focused {
		style = FocusedPanelStyle
	}
	style = style.Width(max(m.width-2, 12))
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(b.String())
}
