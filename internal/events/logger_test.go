package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/models"
	"github.com/desolution/erpshell/internal/session"
	"github.com/desolution/erpshell/internal/theme"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	events []*models.Event
	err    error
}

func (r *fakeRepo) Create(ctx context.Context, event *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRepo) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestLogThemeChanged(t *testing.T) {
	repo := &fakeRepo{}

	require.NoError(t, LogThemeChanged(context.Background(), repo, theme.MidnightBlue, theme.ArcticWhite))
	require.Len(t, repo.events, 1)

	event := repo.events[0]
	require.Equal(t, models.EventTypeThemeChanged, event.Type)
	require.Equal(t, "arcticWhite", event.EntityID)

	var payload models.ThemeChangedPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	require.Equal(t, "midnightBlue", payload.From)

	require.Error(t, LogThemeChanged(context.Background(), nil, "", theme.ArcticWhite))
	require.Error(t, LogThemeChanged(context.Background(), repo, theme.ArcticWhite, ""))
}

func TestLogSessionRequiresUser(t *testing.T) {
	repo := &fakeRepo{}
	require.Error(t, LogSession(context.Background(), repo, models.EventTypeSessionStarted, session.Session{}))

	s := session.Session{User: session.User{"user_id": "u1", "company": "01"}, Token: "tok"}
	require.NoError(t, LogSession(context.Background(), repo, models.EventTypeSessionStarted, s))

	var payload models.SessionPayload
	require.NoError(t, json.Unmarshal(repo.events[0].Payload, &payload))
	require.Equal(t, "01", payload.Company)
	require.True(t, payload.HasToken)
}

func TestRecorderWatchesStores(t *testing.T) {
	repo := &fakeRepo{}
	recorder := NewRecorder(repo)
	storage := kv.NewMemory()
	require.NoError(t, storage.Set(context.Background(), session.UserKey, `{"user_id":"u1"}`))

	selector := theme.NewSelector(storage, theme.WithSelectorLogger(zerolog.Nop()))
	sessions := session.NewStore(storage, session.WithLogger(zerolog.Nop()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = selector.Close(ctx)
		_ = sessions.Close(ctx)
	})

	recorder.WatchTheme(selector)
	recorder.WatchSession(sessions)

	selector.Bootstrap(context.Background())
	sessions.Bootstrap(context.Background())

	require.True(t, selector.Activate(string(theme.Monochrome)))
	require.True(t, selector.Activate(string(theme.Monochrome)))
	require.NoError(t, sessions.Logout())
	require.NoError(t, sessions.Logout())
	require.NoError(t, sessions.SetCredentials(session.User{"user_id": "u2"}, ""))
	recorder.LoginFailed("u3", "Invalid password")
	flushRecorder(t, recorder)

	require.Equal(t, []models.EventType{
		models.EventTypeSessionRestored,
		models.EventTypeThemeChanged,
		models.EventTypeSessionEnded,
		models.EventTypeSessionStarted,
		models.EventTypeLoginFailed,
	}, repo.types())
	require.Equal(t, "u1", repo.events[2].EntityID)
}

func TestRecorderSwallowsErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("disk full")}
	recorder := NewRecorder(repo)

	require.NotPanics(t, func() { recorder.LoginFailed("u1", "nope") })
	flushRecorder(t, recorder)
	require.Empty(t, repo.types())

	var nilRecorder *Recorder
	require.NotPanics(t, func() { nilRecorder.LoginFailed("u1", "nope") })
	require.NoError(t, nilRecorder.Flush(context.Background()))
}

func flushRecorder(t *testing.T, recorder *Recorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, recorder.Flush(ctx))
}

// blockingRepo holds every write until release is closed.
type blockingRepo struct {
	fakeRepo
	release chan struct{}
}

func (r *blockingRepo) Create(ctx context.Context, event *models.Event) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.fakeRepo.Create(ctx, event)
}

func TestRecorderDoesNotBlockStoreChanges(t *testing.T) {
	repo := &blockingRepo{release: make(chan struct{})}
	recorder := NewRecorder(repo)
	changedAt := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	recorder.now = func() time.Time { return changedAt }

	selector := theme.NewSelector(kv.NewMemory(), theme.WithSelectorLogger(zerolog.Nop()))
	t.Cleanup(func() { _ = selector.Close(context.Background()) })
	recorder.WatchTheme(selector)
	selector.Bootstrap(context.Background())

	activated := make(chan bool, 1)
	go func() { activated <- selector.Activate(string(theme.SunsetAmber)) }()

	select {
	case ok := <-activated:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Activate waited for the audit write")
	}
	require.Equal(t, theme.SunsetAmber, selector.ID())
	require.Empty(t, repo.types())

	close(repo.release)
	flushRecorder(t, recorder)
	require.Equal(t, []models.EventType{models.EventTypeThemeChanged}, repo.types())
	require.Equal(t, changedAt, repo.events[0].Timestamp)
}

func TestRecorderCloseDropsLaterEvents(t *testing.T) {
	repo := &fakeRepo{}
	recorder := NewRecorder(repo)

	recorder.LoginFailed("u1", "Invalid password")
	require.NoError(t, recorder.Close(context.Background()))
	recorder.LoginFailed("u2", "Invalid password")
	flushRecorder(t, recorder)

	require.Equal(t, []models.EventType{models.EventTypeLoginFailed}, repo.types())
	require.Equal(t, "u1", repo.events[0].EntityID)
}
