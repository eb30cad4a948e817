package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/logging"
	"github.com/desolution/erpshell/internal/selection"
	"github.com/rs/zerolog"
)

// Durable keys.
const (
	UserKey  = "user"
	TokenKey = "token"
)

// Session errors.
var (
	ErrUserRequired  = errors.New("user is required")
	ErrMissingUserID = errors.New("user record has no user_id")
)

// Session is the in-memory authentication state.
type Session struct {
	User  User
	Token string
}

// IsAuthenticated reports whether a user is signed in.
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}

type binding struct {
	logger zerolog.Logger
}

func (binding) Default() Session {
	return Session{}
}

func (b binding) Load(ctx context.Context, store kv.Store) (Session, error) {
	raw, ok, err := store.Get(ctx, UserKey)
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", UserKey, err)
	}
	if !ok || raw == "" {
		return Session{}, nil
	}

	user, err := ParseUser([]byte(raw))
	if err != nil {
		return Session{}, err
	}
	if len(user) == 0 {
		return Session{}, nil
	}
	if user.ID() == "" {
		return Session{}, ErrMissingUserID
	}

	// The token is optional; a failed read keeps the user signed in.
	token, _, err := store.Get(ctx, TokenKey)
	if err != nil {
		b.logger.Warn().Err(err).Msg("token unreadable, restoring without token")
		token = ""
	}

	return Session{User: user, Token: token}, nil
}

func (binding) Save(ctx context.Context, store kv.Store, s Session) error {
	data, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := store.Set(ctx, UserKey, string(data)); err != nil {
		return err
	}
	if s.Token == "" {
		return store.Delete(ctx, TokenKey)
	}
	return store.Set(ctx, TokenKey, s.Token)
}

func (binding) Clear(ctx context.Context, store kv.Store) error {
	return errors.Join(
		store.Delete(ctx, UserKey),
		store.Delete(ctx, TokenKey),
	)
}

// Store owns the process-wide session.
type Store struct {
	sel    *selection.Store[Session]
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger *zerolog.Logger
	extra  []selection.Option
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = &logger
	}
}

// WithStoreOptions passes options through to the underlying selection store.
func WithStoreOptions(opts ...selection.Option) Option {
	return func(o *storeOptions) {
		o.extra = append(o.extra, opts...)
	}
}

// NewStore creates an empty, unbootstrapped session store.
func NewStore(storage kv.Store, opts ...Option) *Store {
	cfg := storeOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.Component("session")
	if cfg.logger != nil {
		logger = *cfg.logger
	}

	storeOpts := append([]selection.Option{selection.WithLogger(logger)}, cfg.extra...)
	return &Store{
		sel:    selection.New[Session]("session", storage, binding{logger: logger}, storeOpts...),
		logger: logger,
	}
}

// Bootstrap restores the persisted session once.
func (s *Store) Bootstrap(ctx context.Context) {
	s.sel.Bootstrap(ctx)
	current := s.sel.Get()
	s.logger.Debug().
		Bool("authenticated", current.IsAuthenticated()).
		Str("user_id", current.User.ID()).
		Msg("session ready")
}

// SetCredentials signs user in. The token may be empty.
func (s *Store) SetCredentials(user User, token string) error {
	if len(user) == 0 {
		return ErrUserRequired
	}
	if user.ID() == "" {
		return ErrMissingUserID
	}
	if err := s.sel.Set(Session{User: user.Clone(), Token: token}); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", user.ID()).Msg("signed in")
	return nil
}

// Logout clears the session and removes the persisted copy.
func (s *Store) Logout() error {
	userID := s.sel.Get().User.ID()
	if err := s.sel.Reset(); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("signed out")
	return nil
}

// Current returns a copy of the session.
func (s *Store) Current() Session {
	current := s.sel.Get()
	current.User = current.User.Clone()
	return current
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	return s.sel.Get().IsAuthenticated()
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() User {
	return s.sel.Get().User.Clone()
}

// Token returns the session token, or "".
func (s *Store) Token() string {
	return s.sel.Get().Token
}

// Ready reports whether bootstrap has completed.
func (s *Store) Ready() bool {
	return s.sel.Ready()
}

// Done is closed once bootstrap has completed.
func (s *Store) Done() <-chan struct{} {
	return s.sel.Done()
}

// Subscribe observes session changes.
func (s *Store) Subscribe(fn selection.Listener[Session]) func() {
	return s.sel.Subscribe(fn)
}

// Flush waits for queued writes.
func (s *Store) Flush(ctx context.Context) error {
	return s.sel.Flush(ctx)
}

// Close drains queued writes and stops persisting.
func (s *Store) Close(ctx context.Context) error {
	return s.sel.Close(ctx)
}
