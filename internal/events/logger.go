// Package events records erpshell audit events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/desolution/erpshell/internal/logging"
	"github.com/desolution/erpshell/internal/models"
	"github.com/desolution/erpshell/internal/selection"
	"github.com/desolution/erpshell/internal/session"
	"github.com/desolution/erpshell/internal/theme"
	"github.com/rs/zerolog"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogThemeChanged records a theme switch.
func LogThemeChanged(ctx context.Context, repo Repository, from, to theme.ID) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if to == "" {
		return fmt.Errorf("theme id is required")
	}

	payload, err := json.Marshal(models.ThemeChangedPayload{From: string(from), To: string(to)})
	if err != nil {
		return fmt.Errorf("failed to marshal theme payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeThemeChanged,
		EntityType: models.EntityTypeTheme,
		EntityID:   string(to),
		Payload:    payload,
	})
}

// LogSession records a session.started, session.restored or session.ended event.
func LogSession(ctx context.Context, repo Repository, eventType models.EventType, s session.Session) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	userID := s.User.ID()
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	payload, err := json.Marshal(models.SessionPayload{
		Company:  s.User.Company(),
		HasToken: s.Token != "",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       eventType,
		EntityType: models.EntityTypeUser,
		EntityID:   userID,
		Payload:    payload,
	})
}

// LogLoginFailed records a rejected login attempt.
func LogLoginFailed(ctx context.Context, repo Repository, username, message string) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	payload, err := json.Marshal(models.LoginFailedPayload{Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal login payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeLoginFailed,
		EntityType: models.EntityTypeUser,
		EntityID:   username,
		Payload:    payload,
	})
}

// Recorder turns selection changes into audit events. Events are written in
// order by a background worker so the store that changed never waits on the
// repository. Write failures are logged and otherwise ignored.
type Recorder struct {
	repo    Repository
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	queue   []func(ctx context.Context) error
	running bool
	closed  bool
	idle    chan struct{}
}

// NewRecorder creates a Recorder. A nil repo yields a Recorder that does nothing.
func NewRecorder(repo Repository) *Recorder {
	idle := make(chan struct{})
	close(idle)
	return &Recorder{
		repo:    repo,
		logger:  logging.Component("events"),
		timeout: 2 * time.Second,
		now:     time.Now,
		idle:    idle,
	}
}

// WatchTheme records theme.changed events for selector.
func (r *Recorder) WatchTheme(selector *theme.Selector) func() {
	return selector.Subscribe(func(c selection.Change[theme.ID]) {
		if c.Reason != selection.ReasonSet || c.Previous == c.Current {
			return
		}
		r.record(func(ctx context.Context, repo Repository) error {
			return LogThemeChanged(ctx, repo, c.Previous, c.Current)
		})
	})
}

// WatchSession records session lifecycle events for store.
func (r *Recorder) WatchSession(store *session.Store) func() {
	return store.Subscribe(func(c selection.Change[session.Session]) {
		var eventType models.EventType
		subject := c.Current

		switch c.Reason {
		case selection.ReasonBootstrap:
			if !c.Restored || !c.Current.IsAuthenticated() {
				return
			}
			eventType = models.EventTypeSessionRestored
		case selection.ReasonSet:
			eventType = models.EventTypeSessionStarted
		case selection.ReasonReset:
			if !c.Previous.IsAuthenticated() {
				return
			}
			eventType = models.EventTypeSessionEnded
			subject = c.Previous
		default:
			return
		}

		r.record(func(ctx context.Context, repo Repository) error {
			return LogSession(ctx, repo, eventType, subject)
		})
	})
}

// LoginFailed records a failed login attempt.
func (r *Recorder) LoginFailed(username, message string) {
	r.record(func(ctx context.Context, repo Repository) error {
		return LogLoginFailed(ctx, repo, username, message)
	})
}

// Flush waits until every queued event has been written or ctx is done.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.Flush(ctx)
}

// record stamps the event with the time of the change and queues the write.
func (r *Recorder) record(fn func(ctx context.Context, repo Repository) error) {
	if r == nil || r.repo == nil {
		return
	}
	repo := stampedRepository{repo: r.repo, at: r.now().UTC()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Debug().Msg("recorder closed, dropping audit event")
		return
	}
	r.queue = append(r.queue, func(ctx context.Context) error {
		return fn(ctx, repo)
	})
	if !r.running {
		r.running = true
		r.idle = make(chan struct{})
		go r.run()
	}
}

func (r *Recorder) run() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.running = false
			close(r.idle)
			r.mu.Unlock()
			return
		}
		write := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		r.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := write(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("failed to record audit event")
		}
		cancel()
	}
}

// stampedRepository fills in the timestamp of events that have none.
type stampedRepository struct {
	repo Repository
	at   time.Time
}

func (s stampedRepository) Create(ctx context.Context, event *models.Event) error {
	if event != nil && event.Timestamp.IsZero() {
		event.Timestamp = s.at
	}
	return s.repo.Create(ctx, event)
}
