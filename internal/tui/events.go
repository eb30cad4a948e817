package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/models"
	"github.com/desolution/erpshell/internal/selection"
	"github.com/desolution/erpshell/internal/session"
	"github.com/desolution/erpshell/internal/theme"
)

// Authenticator performs a login and stores the resulting session.
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (*auth.Result, error)
}

// ActivityLister lists recent audit events.
type ActivityLister interface {
	Recent(ctx context.Context, limit int) ([]*models.Event, error)
}

// StoresReadyMsg is sent once both stores have finished bootstrapping.
type StoresReadyMsg struct{}

// ThemeChangedMsg wraps a theme selection change.
type ThemeChangedMsg struct {
	Previous theme.ID
	Current  theme.ID
}

// SessionChangedMsg wraps a session change.
type SessionChangedMsg struct {
	Session session.Session
	Reason  selection.Reason
}

// LoginResultMsg carries the outcome of a login attempt.
type LoginResultMsg struct {
	Result *auth.Result
	Err    error
}

// ActivityMsg contains recent audit events.
type ActivityMsg struct {
	Events []*models.Event
	Err    error
}

// LogoutResultMsg carries the outcome of a logout.
type LogoutResultMsg struct {
	Err error
}

type toastExpiredMsg struct {
	seq int
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// bootstrapCmd starts a store bootstrap; repeated calls are no-ops.
func bootstrapCmd(ctx context.Context, bootstrap func(context.Context)) tea.Cmd {
	return func() tea.Msg {
		bootstrap(ctx)
		return nil
	}
}

// waitForStores returns once every channel is closed or ctx ends.
func waitForStores(ctx context.Context, done ...<-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		for _, ch := range done {
			select {
			case <-ch:
			case <-ctx.Done():
				return tea.Quit()
			}
		}
		return StoresReadyMsg{}
	}
}

func loginCmd(ctx context.Context, authenticator Authenticator, creds auth.Credentials) tea.Cmd {
	return func() tea.Msg {
		if authenticator == nil {
			return LoginResultMsg{Err: &auth.AuthError{Message: "Sign-in is not configured"}}
		}
		result, err := authenticator.Login(ctx, creds)
		return LoginResultMsg{Result: result, Err: err}
	}
}

// ThemeRejectedMsg reports an identifier the selector refused.
type ThemeRejectedMsg struct {
	ID theme.ID
}

func activateThemeCmd(selector *theme.Selector, id theme.ID) tea.Cmd {
	return func() tea.Msg {
		if !selector.Activate(string(id)) {
			return ThemeRejectedMsg{ID: id}
		}
		return nil
	}
}

func logoutCmd(store *session.Store) tea.Cmd {
	return func() tea.Msg {
		return LogoutResultMsg{Err: store.Logout()}
	}
}

func loadActivityCmd(ctx context.Context, lister ActivityLister) tea.Cmd {
	if lister == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, activityTimeout)
		defer cancel()
		events, err := lister.Recent(ctx, activityLimit)
		return ActivityMsg{Events: events, Err: err}
	}
}

func expireToastCmd(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// subscribe forwards store changes to the program until the returned
// function is called.
func subscribe(program *tea.Program, selector *theme.Selector, sessions *session.Store) func() {
	unsubTheme := selector.Subscribe(func(change selection.Change[theme.ID]) {
		program.Send(ThemeChangedMsg{Previous: change.Previous, Current: change.Current})
	})
	unsubSession := sessions.Subscribe(func(change selection.Change[session.Session]) {
		program.Send(SessionChangedMsg{Session: change.Current, Reason: change.Reason})
	})
	return func() {
		unsubTheme()
		unsubSession()
	}
}
