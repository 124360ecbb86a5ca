package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	for _, c := range []lipgloss.Color{
		theme.Primary, theme.Secondary, theme.Muted,
		theme.Success, theme.Warning, theme.Error,
	} {
		assert.NotEmpty(t, string(c))
	}
}

func TestDefaultTheme_StatusColoursDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Success, theme.Warning, theme.Error} {
		assert.False(t, seen[c], "duplicate colour %s", c)
		seen[c] = true
	}
}

func TestNewStyles(t *testing.T) {
	theme := DefaultTheme()
	styles := NewStyles(theme)

	require.NotNil(t, styles)
	assert.Same(t, theme, styles.Theme())
	assert.Equal(t, theme.Primary, styles.Title.GetForeground())
	assert.True(t, styles.Title.GetBold())
}

func TestNewStyles_NilTheme(t *testing.T) {
	styles := NewStyles(nil)

	require.NotNil(t, styles)
	assert.Equal(t, *DefaultTheme(), *styles.Theme())
}

func TestStyles_Render(t *testing.T) {
	styles := DefaultStyles()

	assert.Contains(t, styles.Error.Render("boom"), "boom")
	assert.Contains(t, styles.Box.Render("done"), "done")
}
