// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/desolution/erpshell/internal/tui/styles"
)

// EmptyState represents an empty state message with optional suggestions.
type EmptyState struct {
	// Icon is an optional icon to display (e.g., "📭", "🔍").
	Icon string
	// Title is the main empty state message.
	Title string
	// Subtitle is an optional secondary message.
	Subtitle string
	// Suggestions are actionable commands the user can run.
	Suggestions []Suggestion
}

// Suggestion represents a suggested command with description.
type Suggestion struct {
	// Command is a key or CLI command (e.g., "erpshell theme list").
	Command string
	// Description explains what the command does.
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	var lines []string

	titleLine := e.Title
	if e.Icon != "" {
		titleLine = e.Icon + "  " + titleLine
	}
	lines = append(lines, styleSet.Muted.Render(titleLine))

	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}

	if len(e.Suggestions) > 0 {
		lines = append(lines, "")
		lines = append(lines, styleSet.Text.Render("Try:"))
		for _, s := range e.Suggestions {
			cmdLine := fmt.Sprintf("  %s", styleSet.Accent.Render(s.Command))
			if s.Description != "" {
				cmdLine += styleSet.Muted.Render(fmt.Sprintf("  # %s", s.Description))
			}
			lines = append(lines, cmdLine)
		}
	}

	return strings.Join(lines, "\n")
}

// RenderCompact renders a compact single-line empty state.
func (e EmptyState) RenderCompact(styleSet styles.Styles) string {
	line := e.Title
	if e.Icon != "" {
		line = e.Icon + " " + line
	}
	if len(e.Suggestions) > 0 {
		line += fmt.Sprintf(" Try: %s", e.Suggestions[0].Command)
	}
	return styleSet.Muted.Render(line)
}

// EmptyActivity is shown when the audit trail has no entries.
func EmptyActivity() EmptyState {
	return EmptyState{
		Icon:     "📭",
		Title:    "No recent activity",
		Subtitle: "Sign-ins and theme changes appear here.",
		Suggestions: []Suggestion{
			{Command: "t", Description: "pick a theme"},
		},
	}
}

// ActivityUnavailable is shown when no event store is configured.
func ActivityUnavailable() EmptyState {
	return EmptyState{
		Icon:     "🔌",
		Title:    "Activity log unavailable",
		Subtitle: "Use the sqlite storage backend to keep an audit trail.",
		Suggestions: []Suggestion{
			{Command: "erpshell --storage sqlite ui"},
		},
	}
}

// SignedOut is shown in place of the dashboard when no session exists.
func SignedOut() EmptyState {
	return EmptyState{
		Icon:  "🔒",
		Title: "Not signed in",
		Suggestions: []Suggestion{
			{Command: "erpshell login", Description: "sign in from the command line"},
			{Command: "erpshell ui", Description: "sign in interactively"},
		},
	}
}
