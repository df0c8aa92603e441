package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gcbrowse/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Field types
	Text     lipgloss.AdaptiveColor
	Number   lipgloss.AdaptiveColor
	Boolean  lipgloss.AdaptiveColor
	DateTime lipgloss.AdaptiveColor
	JSON     lipgloss.AdaptiveColor
	Enum     lipgloss.AdaptiveColor
	ID       lipgloss.AdaptiveColor
	Relation lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Selected     lipgloss.Style
	Header       lipgloss.Style
	HeaderSorted lipgloss.Style
	Cell         lipgloss.Style
	CursorCell   lipgloss.Style
	LoadingCell  lipgloss.Style
	CheckedRow   lipgloss.Style
	FilterRow    lipgloss.Style

	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style
	PrimaryBold   lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Text:     lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"},
		Number:   lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}, // Cyan
		Boolean:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}, // Orange
		DateTime: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}, // Green
		JSON:     lipgloss.AdaptiveColor{Light: "#808000", Dark: "#F1FA8C"}, // Yellow
		Enum:     lipgloss.AdaptiveColor{Light: "#C0307A", Dark: "#FF79C6"}, // Pink
		ID:       lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Relation: lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#6699FF"}, // Blue

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Foreground(t.Subtext).
		Bold(true)

	t.HeaderSorted = r.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		Underline(true)

	t.Cell = r.NewStyle()
	t.CursorCell = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"})
	t.LoadingCell = r.NewStyle().Foreground(ThemeFg("#6272A4"))
	t.CheckedRow = r.NewStyle().Background(ThemeBg("#363949")).Bold(TermProfile < colorprofile.TrueColor)
	t.FilterRow = r.NewStyle().Foreground(ColorInfo).Italic(true)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)

	return t
}

// TypeColor returns the color used for values of a field.
func (t Theme) TypeColor(f model.Field) lipgloss.AdaptiveColor {
	if f.IsRelation() {
		return t.Relation
	}
	switch f.TypeIdentifier {
	case model.TypeInt, model.TypeFloat:
		return t.Number
	case model.TypeBoolean:
		return t.Boolean
	case model.TypeDateTime:
		return t.DateTime
	case model.TypeJSON:
		return t.JSON
	case model.TypeEnum:
		return t.Enum
	case model.TypeID:
		return t.ID
	default:
		return t.Text
	}
}

// TypeIcon returns the one-cell marker shown next to a column name.
func (t Theme) TypeIcon(f model.Field) string {
	if f.IsRelation() {
		if f.IsList {
			return "⇉"
		}
		return "→"
	}
	switch f.TypeIdentifier {
	case model.TypeInt, model.TypeFloat:
		return "#"
	case model.TypeBoolean:
		return "?"
	case model.TypeDateTime:
		return "@"
	case model.TypeJSON:
		return "{"
	case model.TypeEnum:
		return "≡"
	case model.TypeID:
		return "◆"
	default:
		return "a"
	}
}
