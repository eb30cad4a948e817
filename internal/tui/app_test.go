package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/models"
	"github.com/desolution/erpshell/internal/session"
	"github.com/desolution/erpshell/internal/theme"
)

type fakeAuth struct {
	sessions *session.Store
	err      error
	calls    []auth.Credentials
}

func (f *fakeAuth) Login(_ context.Context, creds auth.Credentials) (*auth.Result, error) {
	f.calls = append(f.calls, creds)
	if f.err != nil {
		return nil, f.err
	}
	user := session.User{"user_id": creds.Username, "name": "Ada Lovelace", "company": creds.Company}
	if err := f.sessions.SetCredentials(user, "jwt"); err != nil {
		return nil, err
	}
	return &auth.Result{User: user, Token: "jwt"}, nil
}

type fakeActivity struct {
	events []*models.Event
	err    error
}

func (f fakeActivity) Recent(context.Context, int) ([]*models.Event, error) {
	return f.events, f.err
}

type harness struct {
	storage  *kv.Memory
	selector *theme.Selector
	sessions *session.Store
	auth     *fakeAuth
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	storage := kv.NewMemory()
	h := &harness{
		storage:  storage,
		selector: theme.NewSelector(storage, theme.WithSelectorLogger(zerolog.Nop())),
		sessions: session.NewStore(storage, session.WithLogger(zerolog.Nop())),
	}
	h.auth = &fakeAuth{sessions: h.sessions}
	t.Cleanup(func() {
		_ = h.selector.Close(context.Background())
		_ = h.sessions.Close(context.Background())
	})
	return h
}

func (h *harness) options() Options {
	return Options{Theme: h.selector, Session: h.sessions, Auth: h.auth, Company: "01"}
}

// ready bootstraps the stores and delivers StoresReadyMsg.
func (h *harness) ready(t *testing.T, opts Options) model {
	t.Helper()
	ctx := context.Background()
	h.selector.Bootstrap(ctx)
	h.sessions.Bootstrap(ctx)

	m := newModel(ctx, opts)
	msg := waitForStores(ctx, h.selector.Done(), h.sessions.Done())()
	require.IsType(t, StoresReadyMsg{}, msg)
	return update(t, m, msg)
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func typeText(t *testing.T, m model, text string) model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(t *testing.T, m model, keyType tea.KeyType) model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: keyType})
}

func TestLoadingGateWaitsForBothStores(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	done := make(chan tea.Msg, 1)
	go func() {
		done <- waitForStores(ctx, h.selector.Done(), h.sessions.Done())()
	}()

	h.selector.Bootstrap(ctx)
	select {
	case <-done:
		t.Fatal("gate opened before session store was ready")
	case <-time.After(50 * time.Millisecond):
	}

	h.sessions.Bootstrap(ctx)
	select {
	case msg := <-done:
		require.IsType(t, StoresReadyMsg{}, msg)
	case <-time.After(time.Second):
		t.Fatal("gate did not open")
	}
}

func TestLoadingViewUntilReady(t *testing.T) {
	h := newHarness(t)
	m := newModel(context.Background(), h.options())

	require.Equal(t, screenLoading, m.screen)
	require.Contains(t, m.View(), "Loading")

	// Keys other than quit are ignored while loading.
	m = typeText(t, m, "t")
	require.Equal(t, screenLoading, m.screen)
}

func TestReadyWithoutSessionShowsLogin(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())

	require.Equal(t, screenLogin, m.screen)
	view := m.View()
	assert.Contains(t, view, "Sign in to continue")
	assert.Contains(t, view, "Username")
	assert.Contains(t, view, "01")
}

func TestReadyWithRestoredSessionShowsDashboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.storage.Set(ctx, session.UserKey, `{"user_id":"ada","name":"Ada Lovelace","company":"07"}`))
	require.NoError(t, h.storage.Set(ctx, theme.StorageKey, string(theme.EmeraldForest)))

	m := h.ready(t, h.options())

	require.Equal(t, screenDashboard, m.screen)
	require.Equal(t, theme.EmeraldForest, m.styles.Theme.ID)
	view := m.View()
	assert.Contains(t, view, "Welcome, Ada Lovelace")
	assert.Contains(t, view, "Company: 07")
	assert.Contains(t, view, "Emerald Forest")
	assert.Contains(t, view, "Activity log unavailable")
}

func TestLoginValidationErrorsInline(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())

	m = typeText(t, m, "ada")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "pw")
	m = press(t, m, tea.KeyTab)
	require.Equal(t, fieldCompany, m.form.focus)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.Nil(t, cmd)
	require.False(t, m.form.submitting)
	require.Equal(t, fieldPassword, m.form.focus)
	require.Contains(t, m.View(), auth.MessagePasswordTooShort)
	require.Empty(t, h.auth.calls)

	// Editing the field clears its error.
	m = typeText(t, m, "d")
	require.NotContains(t, m.View(), auth.MessagePasswordTooShort)
}

func TestLoginSuccessShowsDashboard(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())

	m = typeText(t, m, "ada")
	m = press(t, m, tea.KeyTab)
	m = typeText(t, m, "secret")
	m = press(t, m, tea.KeyEnter)
	require.Equal(t, fieldCompany, m.form.focus)
	m = press(t, m, tea.KeyEnter)
	require.True(t, m.form.submitting)
	require.Contains(t, m.View(), "Signing in")
	require.NotContains(t, m.View(), "secret")

	msg := loginCmd(context.Background(), h.auth, m.form.credentials())()
	m = update(t, m, msg)

	require.Equal(t, []auth.Credentials{{Username: "ada", Password: "secret", Company: "01"}}, h.auth.calls)
	require.True(t, h.sessions.IsAuthenticated())
	require.Equal(t, screenDashboard, m.screen)
	require.Equal(t, "Welcome, Ada Lovelace", m.toast.text)
	require.False(t, m.toast.isError)
	require.Empty(t, m.form.values[fieldPassword])
	require.Equal(t, "01", m.form.values[fieldCompany])
}

func TestLoginFailureShowsToast(t *testing.T) {
	h := newHarness(t)
	h.auth.err = &auth.AuthError{Message: "Invalid password"}
	m := h.ready(t, h.options())
	m.form.submitting = true

	msg := loginCmd(context.Background(), h.auth, auth.Credentials{Username: "ada", Password: "nope"})()
	m = update(t, m, msg)

	require.Equal(t, screenLogin, m.screen)
	require.False(t, m.form.submitting)
	require.True(t, m.toast.isError)
	require.Equal(t, "Invalid password", m.toast.text)
	require.Contains(t, m.View(), "Invalid password")
	require.False(t, h.sessions.IsAuthenticated())
}

func TestLoginWithoutAuthenticator(t *testing.T) {
	msg := loginCmd(context.Background(), nil, auth.Credentials{})()
	result, ok := msg.(LoginResultMsg)
	require.True(t, ok)
	var authErr *auth.AuthError
	require.ErrorAs(t, result.Err, &authErr)
}

func TestToastExpiresOnlyForLatest(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())

	m, _ = m.withToast("first", false)
	first := m.toast.seq
	m, _ = m.withToast("second", true)

	m = update(t, m, toastExpiredMsg{seq: first})
	require.Equal(t, "second", m.toast.text)

	m = update(t, m, toastExpiredMsg{seq: m.toast.seq})
	require.Empty(t, m.toast.text)
}

func TestThemePickerActivatesSelection(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())
	require.NoError(t, h.sessions.SetCredentials(session.User{"user_id": "ada"}, ""))
	m = update(t, m, SessionChangedMsg{Session: h.sessions.Current()})
	require.Equal(t, screenDashboard, m.screen)

	m = typeText(t, m, "t")
	require.Equal(t, screenThemes, m.screen)
	require.Equal(t, 0, m.cursor)
	require.Contains(t, m.View(), "✓ Midnight Blue")

	m = press(t, m, tea.KeyDown)
	m = press(t, m, tea.KeyDown)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.NotNil(t, cmd)
	require.Equal(t, screenDashboard, m.screen)
	require.Equal(t, theme.ArcticWhite, m.styles.Theme.ID)

	require.Nil(t, cmd())
	require.Equal(t, theme.ArcticWhite, h.selector.ID())

	require.NoError(t, h.selector.Flush(context.Background()))
	stored, ok, err := h.storage.Get(context.Background(), theme.StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, string(theme.ArcticWhite), stored)
}

func TestThemePickerFromLoginReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())

	m = press(t, m, tea.KeyCtrlT)
	require.Equal(t, screenThemes, m.screen)
	m = press(t, m, tea.KeyUp)
	require.Equal(t, 0, m.cursor)
	m = press(t, m, tea.KeyEsc)
	require.Equal(t, screenLogin, m.screen)
	require.Equal(t, theme.DefaultID, h.selector.ID())
}

func TestThemeChangedMsgRestyles(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())

	m = update(t, m, ThemeChangedMsg{Previous: theme.MidnightBlue, Current: theme.SunsetAmber})
	require.Equal(t, theme.SunsetAmber, m.styles.Theme.ID)
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())
	require.NoError(t, h.sessions.SetCredentials(session.User{"user_id": "ada"}, "jwt"))
	m = update(t, m, SessionChangedMsg{Session: h.sessions.Current()})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	m = next.(model)
	require.NotNil(t, cmd)

	m = update(t, m, cmd())
	require.False(t, h.sessions.IsAuthenticated())
	require.Equal(t, screenLogin, m.screen)
	require.Equal(t, "Signed out", m.toast.text)
}

func TestDashboardActivity(t *testing.T) {
	h := newHarness(t)
	events := []*models.Event{
		{Type: models.EventTypeThemeChanged, EntityID: "monochrome", Timestamp: time.Now()},
		{Type: models.EventTypeSessionStarted, EntityID: "ada", Timestamp: time.Now()},
	}
	opts := h.options()
	opts.Activity = fakeActivity{events: events}
	require.NoError(t, h.storage.Set(context.Background(), session.UserKey, `{"user_id":"ada"}`))

	h.selector.Bootstrap(context.Background())
	h.sessions.Bootstrap(context.Background())
	next, cmd := newModel(context.Background(), opts).Update(StoresReadyMsg{})
	m := next.(model)
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "Loading activity")

	m = update(t, m, cmd())
	view := m.View()
	assert.Contains(t, view, "Theme")
	assert.Contains(t, view, "monochrome")
	assert.Contains(t, view, "Signed in")

	m = update(t, m, ActivityMsg{})
	assert.Contains(t, m.View(), "No recent activity")

	m = update(t, m, ActivityMsg{Err: errors.New("database is locked")})
	assert.Contains(t, m.View(), "database is locked")
}

func TestSmallTerminal(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())
	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	require.True(t, strings.Contains(m.View(), "Terminal too small"))
}

func TestCtrlCQuitsFromAnyScreen(t *testing.T) {
	h := newHarness(t)
	m := h.ready(t, h.options())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestLoginFormEditing(t *testing.T) {
	form := newLoginForm("")
	form.insert("añb")
	form.backspace()
	require.Equal(t, "añ", form.values[fieldUsername])
	form.prev()
	require.Equal(t, fieldCompany, form.focus)
	form.insert("01")
	form.clearField()
	require.Empty(t, form.values[fieldCompany])
	form.next()
	require.Equal(t, fieldUsername, form.focus)
}
