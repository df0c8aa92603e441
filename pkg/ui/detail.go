package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// DetailPane shows every field of the focused record as markdown.
type DetailPane struct {
	vp       viewport.Model
	renderer *glamour.TermRenderer
	wrap     int
	recordID string
	content  string
	theme    Theme
}

// NewDetailPane creates an empty pane.
func NewDetailPane(theme Theme) DetailPane {
	return DetailPane{vp: viewport.New(40, 20), theme: theme}
}

// SetSize resizes the pane. The markdown renderer is rebuilt when the
// wrap width changes.
func (d *DetailPane) SetSize(w, h int) {
	d.vp.Width = max(w-2, 10)
	d.vp.Height = max(h-2, 3)
	if wrap := max(d.vp.Width-2, 20); wrap != d.wrap || d.renderer == nil {
		d.wrap = wrap
		d.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		d.recordID = ""
	}
}

// SetRecord renders rec of m. A nil record shows a placeholder.
func (d *DetailPane) SetRecord(m model.Model, rec *model.Record) {
	if rec == nil {
		d.recordID = ""
		d.content = ""
		d.vp.SetContent(d.theme.MutedText.Render("Row not loaded"))
		return
	}
	md := RecordMarkdown(m, rec)
	if rec.ID == d.recordID && md == d.content {
		return
	}
	d.recordID = rec.ID
	d.content = md
	out := md
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(md); err == nil {
			out = rendered
		}
	}
	d.vp.SetContent(out)
	d.vp.GotoTop()
}

// ScrollDown scrolls the pane by n lines.
func (d *DetailPane) ScrollDown(n int) { d.vp.ScrollDown(n) }

// ScrollUp scrolls the pane by n lines.
func (d *DetailPane) ScrollUp(n int) { d.vp.ScrollUp(n) }

// View renders the pane inside a panel border.
func (d DetailPane) View() string {
	return PanelStyle.Render(d.vp.View())
}

// RecordMarkdown renders a record as a two-column markdown table.
func RecordMarkdown(m model.Model, rec *model.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s `%s`\n\n", m.Name, rec.ID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, f := range m.Fields {
		v, _ := rec.Get(f.Name)
		val := model.FormatValue(v, f)
		if val == "" {
			val = "_null_"
		} else {
			val = strings.ReplaceAll(val, "|", `\|`)
			val = strings.ReplaceAll(val, "\n", "<br>")
		}
		fmt.Fprintf(&b, "| **%s** `%s` | %s |\n", f.Name, f.TypeIdentifier, val)
	}
	return b.String()
}
