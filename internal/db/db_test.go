package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/desolution/erpshell/internal/models"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := database.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestMigrateIsIdempotent(t *testing.T) {
	database, err := OpenInMemory()
	require.NoError(t, err)
	defer database.Close()

	applied, err := database.MigrateUp(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	applied, err = database.MigrateUp(context.Background())
	require.NoError(t, err)
	require.Zero(t, applied)
}

func TestOpenFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	ctx := context.Background()

	database, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx))
	require.NoError(t, NewKVRepository(database).Set(ctx, "@app_theme", "monochrome"))
	require.NoError(t, database.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Migrate(ctx))

	value, ok, err := NewKVRepository(reopened).Get(ctx, "@app_theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "monochrome", value)
	require.Equal(t, path, reopened.Path())
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestKVRepository(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	repo := NewKVRepository(database)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, "user")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "user", `{"user_id":"u1"}`))
	require.NoError(t, repo.Set(ctx, "token", "abc"))
	require.NoError(t, repo.Set(ctx, "token", "def"))

	value, ok, err := repo.Get(ctx, "token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "def", value)

	keys, err := repo.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"token", "user"}, keys)

	require.NoError(t, repo.Delete(ctx, "token"))
	require.NoError(t, repo.Delete(ctx, "token"))
	_, ok, err = repo.Get(ctx, "token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVRepositoryClosedDatabase(t *testing.T) {
	database := setupTestDB(t)
	repo := NewKVRepository(database)
	require.NoError(t, database.Close())

	_, _, err := repo.Get(context.Background(), "user")
	require.Error(t, err)
	require.Error(t, repo.Set(context.Background(), "user", "{}"))
}

func TestEventRepositoryCreateAndGet(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	repo := NewEventRepository(database)
	ctx := context.Background()

	payload, err := json.Marshal(models.ThemeChangedPayload{From: "midnightBlue", To: "monochrome"})
	require.NoError(t, err)

	event := &models.Event{
		Type:       models.EventTypeThemeChanged,
		EntityType: models.EntityTypeTheme,
		EntityID:   "monochrome",
		Payload:    payload,
		Metadata:   map[string]string{"source": "tui"},
	}
	require.NoError(t, repo.Create(ctx, event))
	require.NotEmpty(t, event.ID)
	require.False(t, event.Timestamp.IsZero())

	got, err := repo.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, models.EventTypeThemeChanged, got.Type)
	require.Equal(t, "monochrome", got.EntityID)
	require.Equal(t, "tui", got.Metadata["source"])
	require.JSONEq(t, string(payload), string(got.Payload))
	require.True(t, event.Timestamp.Equal(got.Timestamp))

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventRepositoryRejectsInvalid(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	repo := NewEventRepository(database)
	require.ErrorIs(t, repo.Create(context.Background(), &models.Event{Type: models.EventTypeSessionEnded}), ErrInvalidEvent)
	require.ErrorIs(t, repo.Create(context.Background(), nil), ErrInvalidEvent)
}

func TestEventRepositoryQueryPagination(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	repo := NewEventRepository(database)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, userID := range []string{"u1", "u2", "u1", "u3", "u1"} {
		require.NoError(t, repo.Create(ctx, &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Type:       models.EventTypeSessionStarted,
			EntityType: models.EntityTypeUser,
			EntityID:   userID,
		}))
	}

	page, err := repo.Query(ctx, EventQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := repo.Query(ctx, EventQuery{Limit: 10, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Events, 3)
	require.Empty(t, next.NextCursor)

	userID := "u1"
	filtered, err := repo.Query(ctx, EventQuery{EntityID: &userID})
	require.NoError(t, err)
	require.Len(t, filtered.Events, 3)

	since := base.Add(3 * time.Second)
	recentOnly, err := repo.Query(ctx, EventQuery{Since: &since})
	require.NoError(t, err)
	require.Len(t, recentOnly.Events, 2)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.True(t, recent[0].Timestamp.After(recent[1].Timestamp))
}
