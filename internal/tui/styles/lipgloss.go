// Package styles turns themes into lipgloss styles.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desolution/erpshell/internal/theme"
)

// Styles contains lipgloss styles derived from a theme.
type Styles struct {
	Theme      theme.Theme
	App        lipgloss.Style
	Title      lipgloss.Style
	Text       lipgloss.Style
	Muted      lipgloss.Style
	Accent     lipgloss.Style
	Panel      lipgloss.Style
	Border     lipgloss.Style
	Focus      lipgloss.Style
	Input      lipgloss.Style
	InputFocus lipgloss.Style
	Button     lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Error      lipgloss.Style
	Info       lipgloss.Style
	Selected   lipgloss.Style
	Toast      lipgloss.Style
	ToastError lipgloss.Style
	StatusBar  lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(theme.Default())
}

// ForID builds styles for a registered theme, falling back to the default.
func ForID(id theme.ID) Styles {
	t, ok := theme.Lookup(id)
	if !ok {
		t = theme.Default()
	}
	return BuildStyles(t)
}

// BuildStyles converts theme colors into lipgloss styles.
func BuildStyles(t theme.Theme) Styles {
	c := t.Colors
	color := func(hex string) lipgloss.Color { return lipgloss.Color(hex) }
	// Padding uses terminal cells, so the 4px grid is scaled down.
	pad := max(t.Spacing.XS/4, 1)

	statusBar := lipgloss.NewStyle().Foreground(color(c.White)).Background(color(c.PrimaryDark))
	if t.Dark {
		statusBar = lipgloss.NewStyle().Foreground(color(c.Text)).Background(color(c.Surface))
	}

	return Styles{
		Theme:      t,
		App:        lipgloss.NewStyle().Foreground(color(c.Text)).Background(color(c.Background)),
		Title:      lipgloss.NewStyle().Foreground(color(c.Primary)).Bold(true),
		Text:       lipgloss.NewStyle().Foreground(color(c.Text)),
		Muted:      lipgloss.NewStyle().Foreground(color(c.TextSecondary)),
		Accent:     lipgloss.NewStyle().Foreground(color(c.Primary)),
		Panel:      lipgloss.NewStyle().Foreground(color(c.Text)).Background(color(c.Surface)).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(color(c.Border)).Padding(0, pad),
		Border:     lipgloss.NewStyle().Foreground(color(c.Border)),
		Focus:      lipgloss.NewStyle().Foreground(color(c.Primary)).Bold(true),
		Input:      lipgloss.NewStyle().Foreground(color(c.Text)).BorderStyle(lipgloss.NormalBorder()).BorderForeground(color(c.Border)).Padding(0, pad),
		InputFocus: lipgloss.NewStyle().Foreground(color(c.Text)).BorderStyle(lipgloss.NormalBorder()).BorderForeground(color(c.Primary)).Padding(0, pad),
		Button:     lipgloss.NewStyle().Foreground(color(c.White)).Background(color(c.Primary)).Bold(true).Padding(0, 2*pad),
		Success:    lipgloss.NewStyle().Foreground(color(c.Success)),
		Warning:    lipgloss.NewStyle().Foreground(color(c.Warning)),
		Error:      lipgloss.NewStyle().Foreground(color(c.Error)),
		Info:       lipgloss.NewStyle().Foreground(color(c.Info)),
		Selected:   lipgloss.NewStyle().Foreground(color(c.White)).Background(color(c.PrimaryDark)).Bold(true),
		Toast:      lipgloss.NewStyle().Foreground(color(c.White)).Background(color(c.Success)).Padding(0, pad),
		ToastError: lipgloss.NewStyle().Foreground(color(c.White)).Background(color(c.Error)).Padding(0, pad),
		StatusBar:  statusBar.Padding(0, pad),
	}
}

// Swatch renders a short colour sample of a theme's primary and surface colours.
func Swatch(t theme.Theme) string {
	primary := lipgloss.NewStyle().Background(lipgloss.Color(t.Colors.Primary)).Render("  ")
	surface := lipgloss.NewStyle().Background(lipgloss.Color(t.Colors.Surface)).Render("  ")
	bg := lipgloss.NewStyle().Background(lipgloss.Color(t.Colors.Background)).Render("  ")
	return primary + surface + bg
}
