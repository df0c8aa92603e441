package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gcbrowse/pkg/datasync"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	ColorSuccessBg = lipgloss.AdaptiveColor{Light: "#D4EDDA", Dark: "#1A3D2A"}
	ColorWarningBg = lipgloss.AdaptiveColor{Light: "#FFE8CC", Dark: "#3D2A1A"}
	ColorDangerBg  = lipgloss.AdaptiveColor{Light: "#F8D7DA", Dark: "#3D1A1A"}
	ColorInfoBg    = lipgloss.AdaptiveColor{Light: "#D1ECF1", Dark: "#1A3344"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For the side navigation and detail pane
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RENDERING
// ══════════════════════════════════════════════════════════════════════════════

// RenderLevelBadge returns the badge shown in front of a notification.
func RenderLevelBadge(level datasync.Level) string {
	var fg, bg lipgloss.AdaptiveColor
	var label string

	switch level {
	case datasync.LevelSuccess:
		fg, bg, label = ColorSuccess, ColorSuccessBg, " OK "
	case datasync.LevelWarning:
		fg, bg, label = ColorWarning, ColorWarningBg, "WARN"
	case datasync.LevelError:
		fg, bg, label = ColorDanger, ColorDangerBg, "ERR "
	default:
		fg, bg, label = ColorInfo, ColorInfoBg, "INFO"
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Bold(true).
		Render(label)
}

// RenderCountBadge renders a model's item count in the side navigation.
func RenderCountBadge(n int, active bool) string {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	if active {
		style = style.Foreground(ColorPrimary).Bold(true)
	}
	return style.Render(formatCount(n))
}
