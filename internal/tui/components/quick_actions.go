package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desolution/erpshell/internal/tui/styles"
)

// QuickAction represents a keyboard-triggered action.
type QuickAction struct {
	Key     string // Keyboard key (e.g., "t", "l")
	Label   string // Display label (e.g., "Themes", "Logout")
	Enabled bool   // Whether the action is available
}

// RenderQuickActionBar renders a horizontal bar of available quick actions.
// Format: "t:Themes  l:Logout  q:Quit"
func RenderQuickActionBar(styleSet styles.Styles, actions []QuickAction) string {
	if len(actions) == 0 {
		return ""
	}

	var parts []string
	for _, action := range actions {
		if !action.Enabled {
			continue
		}
		keyStyle := styleSet.Accent.Bold(true)
		part := fmt.Sprintf("%s:%s", keyStyle.Render(action.Key), styleSet.Muted.Render(action.Label))
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, "  ")
}

// DashboardActions are the shortcuts available once signed in.
func DashboardActions(hasActivity bool) []QuickAction {
	return []QuickAction{
		{Key: "t", Label: "Themes", Enabled: true},
		{Key: "r", Label: "Refresh", Enabled: hasActivity},
		{Key: "l", Label: "Logout", Enabled: true},
		{Key: "q", Label: "Quit", Enabled: true},
	}
}

// LoginActions are the shortcuts shown under the login form.
func LoginActions(submitting bool) []QuickAction {
	return []QuickAction{
		{Key: "tab", Label: "Next field", Enabled: !submitting},
		{Key: "enter", Label: "Sign in", Enabled: !submitting},
		{Key: "ctrl+t", Label: "Themes", Enabled: true},
		{Key: "esc", Label: "Quit", Enabled: true},
	}
}

// PickerActions are the shortcuts shown in the theme picker.
func PickerActions() []QuickAction {
	return []QuickAction{
		{Key: "↑/↓", Label: "Move", Enabled: true},
		{Key: "enter", Label: "Apply", Enabled: true},
		{Key: "esc", Label: "Back", Enabled: true},
	}
}

// RenderStatusBar renders a full-width bar with the action list.
func RenderStatusBar(styleSet styles.Styles, actions []QuickAction, width int) string {
	bar := RenderQuickActionBar(styleSet, actions)
	if width <= 0 {
		return styleSet.StatusBar.Render(bar)
	}
	return styleSet.StatusBar.Width(width).Align(lipgloss.Left).Render(bar)
}
