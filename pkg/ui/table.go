package ui

import (
	"strings"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// checkboxWidth is the selection column in front of every row.
const checkboxWidth = 4

func checkbox(checked bool) string {
	if checked {
		return "[x] "
	}
	return "[ ] "
}

// columnWidths sizes the columns of the current model from the loaded rows.
func (m Model) columnWidths() []int {
	return ColumnWidths(m.ctrl.Model().Fields, m.state.Window.LoadedRecords(), m.tableWidth()-checkboxWidth)
}

// renderTable draws the header, the optional filter row and the visible rows.
func (m Model) renderTable(width int) string {
	md := m.ctrl.Model()
	if md.Name == "" {
		return ""
	}
	fields := md.Fields
	widths := m.columnWidths()
	first, last := visibleColumns(widths, m.colOffset, width-checkboxWidth)

	lines := []string{m.renderHeader(fields, widths, first, last)}
	if m.state.Prefs.FiltersVisible() {
		lines = append(lines, m.renderFilterRow(fields, widths, first, last))
	}

	w := m.state.Window
	switch {
	case m.state.Prefs.Loading():
		lines = append(lines, m.spinner.View()+" "+m.theme.MutedText.Render("Loading…"))
	case w.ItemCount() == 0:
		empty := "No nodes yet. Press n to add one"
		if len(w.Filter()) > 0 {
			empty = "No nodes match the filter"
		}
		lines = append(lines, m.theme.MutedText.Render(empty))
	default:
		top := m.topRow()
		for i := top; i < min(top+m.visibleRows(), w.ItemCount()); i++ {
			lines = append(lines, m.renderRow(i, fields, widths, first, last))
			for range m.rowHeight - 1 {
				lines = append(lines, "")
			}
		}
	}
	return m.theme.Renderer.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderHeader(fields []model.Field, widths []int, first, last int) string {
	order := m.state.Window.Order()
	var b strings.Builder
	b.WriteString(m.theme.Header.Render(checkbox(m.state.AllLoadedSelected())))
	for c := first; c < last; c++ {
		f := fields[c]
		label := m.theme.TypeIcon(f) + " " + f.Name
		style := m.theme.Header
		if order.FieldName == f.Name {
			label += " " + order.Direction.Indicator()
			style = m.theme.HeaderSorted
		}
		b.WriteString(style.Render(padRight(label, widths[c]-1)))
		b.WriteString(" ")
	}
	return b.String()
}

func (m Model) renderFilterRow(fields []model.Field, widths []int, first, last int) string {
	filter := m.state.Window.Filter()
	var b strings.Builder
	b.WriteString(m.theme.FilterRow.Render(padRight("⧩", checkboxWidth)))
	for c := first; c < last; c++ {
		f := fields[c]
		text := "·"
		if v, ok := filter[f.Name]; ok {
			text = model.FormatValue(v, f)
		}
		if m.focus == focusInput && m.inputMode == inputFilter && m.inputField.Name == f.Name {
			text = m.input.Value() + "▏"
		}
		b.WriteString(m.theme.FilterRow.Render(padRight(text, widths[c]-1)))
		b.WriteString(" ")
	}
	return b.String()
}

// renderRow draws row i. Rows not loaded yet render placeholder cells.
func (m Model) renderRow(i int, fields []model.Field, widths []int, first, last int) string {
	rec := m.state.Window.Record(i)
	cursor := i == m.cursorRow && m.focus != focusSideNav
	var b strings.Builder

	if rec == nil {
		b.WriteString(m.theme.LoadingCell.Render(padRight("", checkboxWidth)))
		for c := first; c < last; c++ {
			b.WriteString(m.theme.LoadingCell.Render(padRight("…", widths[c])))
		}
		return b.String()
	}

	selected := m.state.Selection.IsSelected(rec.ID)
	rowStyle := m.theme.Cell
	if selected {
		rowStyle = m.theme.CheckedRow
	}
	box := checkbox(selected)
	if cursor {
		b.WriteString(m.theme.Selected.Render(box))
	} else {
		b.WriteString(rowStyle.Render(box))
	}

	for c := first; c < last; c++ {
		f := fields[c]
		v, _ := rec.Get(f.Name)
		text := formatCell(v, f)
		if v == nil {
			text = "null"
		}
		editing := cursor && c == m.cursorCol && m.focus == focusInput && m.inputMode == inputEditCell
		if editing {
			text = m.input.Value() + "▏"
		}
		cell := padRight(text, widths[c]-1) + " "
		switch {
		case cursor && c == m.cursorCol:
			b.WriteString(m.theme.CursorCell.Render(cell))
		case v == nil:
			b.WriteString(rowStyle.Foreground(m.theme.Muted).Render(cell))
		default:
			b.WriteString(rowStyle.Foreground(m.theme.TypeColor(f)).Render(cell))
		}
	}
	return b.String()
}
