package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// FormFieldKind defines how a field is edited.
type FormFieldKind int

const (
	FormFieldText FormFieldKind = iota
	FormFieldSelect
)

// FormField is one input of the new-row form.
type FormField struct {
	Field    model.Field
	Kind     FormFieldKind
	Input    textinput.Model // for text fields
	Options  []string        // for select fields
	Selected int             // current selection index for select fields
	Original string          // initial value for dirty detection
}

// NewRowForm collects the values of a record to create. It is prefilled
// with the field defaults.
type NewRowForm struct {
	modelName    string
	fields       []FormField
	focusedField int
	width        int
	theme        Theme

	dirty           bool
	saveRequested   bool
	cancelRequested bool
	blurRequested   bool
}

// NewNewRowForm builds the form for the editable fields of m.
func NewNewRowForm(m model.Model, theme Theme) NewRowForm {
	var fields []FormField
	for _, f := range m.EditableFields() {
		initial := model.FormatValue(model.DefaultFieldValue(f), f)
		if opts := selectOptions(f); opts != nil {
			fields = append(fields, makeSelectField(f, initial, opts))
			continue
		}
		fields = append(fields, makeTextField(f, initial))
	}
	form := NewRowForm{modelName: m.Name, fields: fields, theme: theme}
	if len(form.fields) > 0 {
		form.fields[0] = form.focusField(form.fields[0])
	}
	return form
}

// selectOptions returns the choices of fields edited by cycling, or nil.
func selectOptions(f model.Field) []string {
	if f.IsList || f.IsRelation() {
		return nil
	}
	var opts []string
	switch f.TypeIdentifier {
	case model.TypeBoolean:
		opts = []string{"false", "true"}
	case model.TypeEnum:
		if len(f.EnumValues) == 0 {
			return nil
		}
		opts = append(opts, f.EnumValues...)
	default:
		return nil
	}
	if !f.IsRequired {
		opts = append([]string{""}, opts...)
	}
	return opts
}

func makeTextField(f model.Field, value string) FormField {
	ti := textinput.New()
	ti.SetValue(value)
	ti.CharLimit = 2000
	ti.Width = 40
	switch {
	case f.IsRelation() && f.IsList:
		ti.Placeholder = "id1, id2"
	case f.IsRelation():
		ti.Placeholder = f.RelatedModel + " id"
	case f.IsList:
		ti.Placeholder = `["a", "b"]`
	}
	return FormField{Field: f, Kind: FormFieldText, Input: ti, Original: value}
}

func makeSelectField(f model.Field, value string, options []string) FormField {
	selected := 0
	for i, opt := range options {
		if opt == value {
			selected = i
			break
		}
	}
	return FormField{Field: f, Kind: FormFieldSelect, Options: options, Selected: selected, Original: value}
}

// Update handles input for the form.
func (m NewRowForm) Update(msg tea.Msg) (NewRowForm, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.fields) == 0 {
		if ok && (key.String() == "esc" || key.String() == "ctrl+x") {
			m.cancelRequested = true
		}
		return m, nil
	}

	switch key.String() {
	case "ctrl+s":
		m.saveRequested = true
		return m, nil

	case "enter":
		if m.focusedField == len(m.fields)-1 {
			m.saveRequested = true
			return m, nil
		}
		m.moveFocus(1)
		return m, nil

	case "esc":
		// a dirty form stays open; only focus leaves it
		if m.dirty {
			m.blurRequested = true
		} else {
			m.cancelRequested = true
		}
		return m, nil

	case "ctrl+x":
		m.cancelRequested = true
		return m, nil

	case "tab", "down":
		m.moveFocus(1)
		return m, nil

	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil

	case "left", "right", " ", "space":
		if m.fields[m.focusedField].Kind == FormFieldSelect {
			field := &m.fields[m.focusedField]
			step := 1
			if key.String() == "left" {
				step = -1
			}
			field.Selected = (field.Selected + step + len(field.Options)) % len(field.Options)
			m.updateDirtyFlag()
			return m, nil
		}
	}

	var cmd tea.Cmd
	field := &m.fields[m.focusedField]
	if field.Kind == FormFieldText {
		field.Input, cmd = field.Input.Update(msg)
	}
	m.updateDirtyFlag()
	return m, cmd
}

func (m *NewRowForm) moveFocus(step int) {
	m.fields[m.focusedField] = m.blurField(m.fields[m.focusedField])
	m.focusedField = (m.focusedField + step + len(m.fields)) % len(m.fields)
	m.fields[m.focusedField] = m.focusField(m.fields[m.focusedField])
}

func (m NewRowForm) focusField(field FormField) FormField {
	if field.Kind == FormFieldText {
		field.Input.Focus()
	}
	return field
}

func (m NewRowForm) blurField(field FormField) FormField {
	if field.Kind == FormFieldText {
		field.Input.Blur()
	}
	return field
}

func (m *NewRowForm) updateDirtyFlag() {
	m.dirty = false
	for _, field := range m.fields {
		if field.value() != field.Original {
			m.dirty = true
			break
		}
	}
}

func (f FormField) value() string {
	switch f.Kind {
	case FormFieldSelect:
		if f.Selected >= 0 && f.Selected < len(f.Options) {
			return f.Options[f.Selected]
		}
		return ""
	default:
		return f.Input.Value()
	}
}

// Values parses every input by its field type. All parse errors are
// returned together.
func (m NewRowForm) Values() (map[string]any, error) {
	values := make(map[string]any, len(m.fields))
	var errs []error
	for _, field := range m.fields {
		v, err := model.ParseValue(field.value(), field.Field)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v == nil && field.Field.IsList {
			v = []any{}
		}
		values[field.Field.Name] = v
	}
	return values, errors.Join(errs...)
}

// SetValue sets the input of a field by name; used when prefilling.
func (m *NewRowForm) SetValue(name, value string) bool {
	for i := range m.fields {
		f := &m.fields[i]
		if f.Field.Name != name {
			continue
		}
		if f.Kind == FormFieldSelect {
			for j, opt := range f.Options {
				if opt == value {
					f.Selected = j
				}
			}
		} else {
			f.Input.SetValue(value)
		}
		m.updateDirtyFlag()
		return true
	}
	return false
}

// Dirty reports whether any input differs from its default.
func (m NewRowForm) Dirty() bool { return m.dirty }

// IsSaveRequested returns true once ctrl+s (or enter on the last field) was pressed.
func (m NewRowForm) IsSaveRequested() bool { return m.saveRequested }

// IsCancelRequested returns true if the form should be discarded.
func (m NewRowForm) IsCancelRequested() bool { return m.cancelRequested }

// IsBlurRequested returns true if esc was pressed on a dirty form.
func (m NewRowForm) IsBlurRequested() bool { return m.blurRequested }

// ClearRequests rearms the form after a request was handled.
func (m *NewRowForm) ClearRequests() {
	m.saveRequested = false
	m.cancelRequested = false
	m.blurRequested = false
}

// SetWidth sets the available width.
func (m *NewRowForm) SetWidth(w int) { m.width = w }

// View renders the form as a bordered block above the table.
func (m NewRowForm) View() string {
	r := m.theme.Renderer

	labelWidth := 12
	for _, f := range m.fields {
		labelWidth = max(labelWidth, len(f.Field.Name)+2)
	}
	labelStyle := r.NewStyle().Foreground(m.theme.Secondary).Width(labelWidth).Align(lipgloss.Right)
	focusedLabelStyle := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Width(labelWidth).Align(lipgloss.Right)
	selectStyle := r.NewStyle().Foreground(m.theme.Primary)

	var content strings.Builder
	content.WriteString(m.theme.PrimaryBold.Render(fmt.Sprintf("New %s", m.modelName)))
	content.WriteString("\n")

	if len(m.fields) == 0 {
		content.WriteString(m.theme.MutedText.Render("No input fields"))
	}
	for i, field := range m.fields {
		label := field.Field.Name
		if field.Field.IsRequired {
			label += "*"
		}
		if i == m.focusedField {
			content.WriteString(focusedLabelStyle.Render(label + ":"))
		} else {
			content.WriteString(labelStyle.Render(label + ":"))
		}
		content.WriteString(" ")

		switch field.Kind {
		case FormFieldSelect:
			val := field.value()
			if val == "" {
				val = "null"
			}
			if i == m.focusedField {
				content.WriteString(selectStyle.Render(fmt.Sprintf("< %s >", val)))
			} else {
				content.WriteString(val)
			}
		default:
			content.WriteString(field.Input.View())
		}
		content.WriteString(" ")
		content.WriteString(r.NewStyle().Foreground(m.theme.TypeColor(field.Field)).Render(string(field.Field.TypeIdentifier)))
		content.WriteString("\n")
	}

	instructions := "[Tab] Next field   [Ctrl+S] Create   [Esc] Back   [Ctrl+X] Discard"
	if len(m.fields) > 0 && m.fields[m.focusedField].Kind == FormFieldSelect {
		instructions = "[←/→] Change   " + instructions
	}
	content.WriteString(r.NewStyle().Foreground(m.theme.Subtext).Italic(true).Render(instructions))

	style := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(0, 1)
	if m.width > 4 {
		style = style.Width(m.width - 2)
	}
	return style.Render(content.String())
}
