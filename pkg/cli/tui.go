package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/help text color
	Danger  lipgloss.Color // Rejections and failures
	Warn    lipgloss.Color // Retries
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Danger:  lipgloss.Color("#ff5f5f"),
	Warn:    lipgloss.Color("#ffaf00"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Help  lipgloss.Style
	Good  lipgloss.Style
	Bad   lipgloss.Style
	Warn  lipgloss.Style
}

// DefaultStyles is NewStyles(DefaultTheme).
var DefaultStyles = NewStyles(DefaultTheme)

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
		Good:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Bad:   lipgloss.NewStyle().Bold(true).Foreground(t.Danger),
		Warn:  lipgloss.NewStyle().Foreground(t.Warn),
	}
}

// Verdict styles a verdict word: accepted and enrolled are good, rejected
// is bad, anything else is a warning.
func (s Styles) Verdict(v string) string {
	switch v {
	case "accepted", "enrolled", "unlocked":
		return s.Good.Render(v)
	case "rejected", "locked":
		return s.Bad.Render(v)
	default:
		return s.Warn.Render(v)
	}
}
