// Package models defines persisted erpshell records.
package models

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	// Session events
	EventTypeSessionStarted  EventType = "session.started"
	EventTypeSessionRestored EventType = "session.restored"
	EventTypeSessionEnded    EventType = "session.ended"

	// Login attempts that did not produce a session
	EventTypeLoginFailed EventType = "login.failed"

	// Theme events
	EventTypeThemeChanged EventType = "theme.changed"
)

// EventTypes lists every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventTypeSessionStarted,
		EventTypeSessionRestored,
		EventTypeSessionEnded,
		EventTypeLoginFailed,
		EventTypeThemeChanged,
	}
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return slices.Contains(EventTypes(), t)
}

// EntityType identifies what an event relates to.
type EntityType string

const (
	EntityTypeUser  EntityType = "user"
	EntityTypeTheme EntityType = "theme"
)

// Event is an append-only audit log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the user id or theme id.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks that required fields are set.
func (e *Event) Validate() error {
	var errs []error
	if strings.TrimSpace(string(e.Type)) == "" {
		errs = append(errs, errors.New("event type is required"))
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		errs = append(errs, errors.New("entity_type is required"))
	}
	if strings.TrimSpace(e.EntityID) == "" {
		errs = append(errs, errors.New("entity_id is required"))
	}
	return errors.Join(errs...)
}

// ThemeChangedPayload is the payload for theme.changed events.
type ThemeChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SessionPayload is the payload for session.* events.
type SessionPayload struct {
	Company  string `json:"company,omitempty"`
	HasToken bool   `json:"has_token"`
}

// LoginFailedPayload is the payload for login.failed events.
type LoginFailedPayload struct {
	Message string `json:"message"`
}
