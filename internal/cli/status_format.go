package cli

import (
	"os"
	"strings"
	"time"

	"github.com/desolution/erpshell/internal/models"
)

func formatEventType(eventType models.EventType) string {
	label, color := statusLabelForEvent(eventType)
	return colorize(formatStatusLabel(label, string(eventType)), color)
}

func statusLabelForEvent(eventType models.EventType) (string, string) {
	switch eventType {
	case models.EventTypeSessionStarted, models.EventTypeSessionRestored:
		return "OK", colorGreen
	case models.EventTypeSessionEnded:
		return "END", colorCyan
	case models.EventTypeThemeChanged:
		return "SET", colorMagenta
	case models.EventTypeLoginFailed:
		return "ERR", colorRed
	default:
		return "WARN", colorYellow
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized == "" {
		return label
	}
	return label + " " + normalized
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
