// Package styles holds the colours and lipgloss styles of the terminal views.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette.
type Theme struct {
	// Primary is the accent used for titles and the progress bar.
	Primary lipgloss.Color

	// Secondary is the end colour of the progress gradient.
	Secondary lipgloss.Color

	// Muted is for counters and help text.
	Muted lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the letterhead palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:   lipgloss.Color("#333F50"), // Slate
		Secondary: lipgloss.Color("#4472C4"), // Blue
		Muted:     lipgloss.Color("#7B8088"),
		Success:   lipgloss.Color("#70AD47"),
		Warning:   lipgloss.Color("#ED7D31"),
		Error:     lipgloss.Color("#C00000"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Help    lipgloss.Style

	// Box frames the final summary.
	Box lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Label: lipgloss.NewStyle().
			Width(10),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Muted).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
