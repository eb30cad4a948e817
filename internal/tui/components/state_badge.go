package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desolution/erpshell/internal/models"
	"github.com/desolution/erpshell/internal/tui/styles"
)

// RenderEventBadge renders an audit event type with icon and color.
func RenderEventBadge(styleSet styles.Styles, eventType models.EventType) string {
	icon, label, style := eventDescriptor(styleSet, eventType)
	return style.Render(fmt.Sprintf("%s %s", icon, label))
}

func eventDescriptor(styleSet styles.Styles, eventType models.EventType) (string, string, lipgloss.Style) {
	switch eventType {
	case models.EventTypeSessionStarted:
		return ">", "Signed in", styleSet.Success
	case models.EventTypeSessionRestored:
		return "~", "Restored", styleSet.Info
	case models.EventTypeSessionEnded:
		return "-", "Signed out", styleSet.Muted
	case models.EventTypeLoginFailed:
		return "ERR", "Login failed", styleSet.Error
	case models.EventTypeThemeChanged:
		return "*", "Theme", styleSet.Accent
	default:
		return "-", normalizeEventLabel(eventType), styleSet.Muted
	}
}

func normalizeEventLabel(eventType models.EventType) string {
	value := strings.TrimSpace(strings.NewReplacer(".", " ", "_", " ").Replace(string(eventType)))
	if value == "" {
		return "Unknown"
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
