package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ImportProgress is the import popup. It implements datasync.ProgressSink;
// the controller drives it from inside Update.
type ImportProgress struct {
	bar    progress.Model
	total  int
	done   int
	active bool
	theme  Theme
}

// NewImportProgress creates an inactive popup.
func NewImportProgress(theme Theme) *ImportProgress {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40
	return &ImportProgress{bar: bar, theme: theme}
}

// StartProgress opens the popup for total chunks.
func (p *ImportProgress) StartProgress(total int) {
	p.total = total
	p.done = 0
	p.active = total > 0
}

// IncrementProgress records one settled chunk.
func (p *ImportProgress) IncrementProgress() {
	if p.done < p.total {
		p.done++
	}
}

// FinishProgress closes the popup.
func (p *ImportProgress) FinishProgress() {
	p.active = false
}

// Active reports whether an import is running.
func (p *ImportProgress) Active() bool { return p.active }

// Counts returns completed and total chunks.
func (p *ImportProgress) Counts() (done, total int) { return p.done, p.total }

// Percent is the completed fraction.
func (p *ImportProgress) Percent() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.done) / float64(p.total)
}

// View renders the popup box.
func (p *ImportProgress) View() string {
	if !p.active {
		return ""
	}
	r := p.theme.Renderer
	title := r.NewStyle().Bold(true).Foreground(p.theme.Primary).Render("Importing")
	counter := p.theme.MutedText.Render(fmt.Sprintf("%d / %d chunks", p.done, p.total))
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", p.bar.ViewAs(p.Percent()), counter)
	return r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.theme.Primary).
		Padding(1, 2).
		Render(body)
}
