package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	event := &Event{Type: EventTypeThemeChanged, EntityType: EntityTypeTheme, EntityID: "monochrome"}
	require.NoError(t, event.Validate())

	err := (&Event{EntityID: "  "}).Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "event type is required")
	require.Contains(t, err.Error(), "entity_type is required")
	require.Contains(t, err.Error(), "entity_id is required")
}

func TestEventTypeValid(t *testing.T) {
	for _, eventType := range EventTypes() {
		require.True(t, eventType.Valid(), eventType)
	}
	require.False(t, EventType("agent.spawned").Valid())
	require.False(t, EventType("").Valid())
}
