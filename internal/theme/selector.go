package theme

import (
	"context"
	"fmt"

	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/logging"
	"github.com/desolution/erpshell/internal/selection"
	"github.com/rs/zerolog"
)

// StorageKey is the durable key holding the selected theme identifier.
const StorageKey = "@app_theme"

type binding struct {
	fallback ID
}

func (b binding) Default() ID {
	return b.fallback
}

func (b binding) Load(ctx context.Context, store kv.Store) (ID, error) {
	raw, ok, err := store.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", StorageKey, err)
	}
	if !ok || raw == "" {
		return b.fallback, nil
	}
	return Parse(raw)
}

func (b binding) Save(ctx context.Context, store kv.Store, id ID) error {
	return store.Set(ctx, StorageKey, string(id))
}

func (b binding) Clear(ctx context.Context, store kv.Store) error {
	return store.Delete(ctx, StorageKey)
}

// Selector owns the active theme selection.
type Selector struct {
	store  *selection.Store[ID]
	logger zerolog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*selectorOptions)

type selectorOptions struct {
	fallback ID
	logger   *zerolog.Logger
	extra    []selection.Option
}

// WithFallback sets the theme used when nothing valid is persisted.
// Unknown identifiers are ignored.
func WithFallback(id ID) SelectorOption {
	return func(o *selectorOptions) {
		if _, ok := Lookup(id); ok {
			o.fallback = id
		}
	}
}

// WithSelectorLogger overrides the component logger.
func WithSelectorLogger(logger zerolog.Logger) SelectorOption {
	return func(o *selectorOptions) {
		o.logger = &logger
	}
}

// WithStoreOptions passes options through to the underlying selection store.
func WithStoreOptions(opts ...selection.Option) SelectorOption {
	return func(o *selectorOptions) {
		o.extra = append(o.extra, opts...)
	}
}

// NewSelector creates a Selector backed by storage.
func NewSelector(storage kv.Store, opts ...SelectorOption) *Selector {
	cfg := selectorOptions{fallback: DefaultID}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.Component("theme")
	if cfg.logger != nil {
		logger = *cfg.logger
	}

	storeOpts := append([]selection.Option{selection.WithLogger(logger)}, cfg.extra...)
	return &Selector{
		store:  selection.New[ID]("theme", storage, binding{fallback: cfg.fallback}, storeOpts...),
		logger: logger,
	}
}

// Bootstrap loads the persisted theme once.
func (s *Selector) Bootstrap(ctx context.Context) {
	s.store.Bootstrap(ctx)
	id := s.store.Get()
	s.logger.Debug().Str("theme_id", string(id)).Msg("theme ready")
}

// Activate switches to the theme named raw and persists the choice.
// It reports false, leaving the selection unchanged, for unknown
// identifiers or before bootstrap.
func (s *Selector) Activate(raw string) bool {
	id, err := Parse(raw)
	if err != nil {
		s.logger.Warn().Str("theme_id", raw).Msg("ignoring unknown theme")
		return false
	}
	if err := s.store.Set(id); err != nil {
		s.logger.Warn().Err(err).Str("theme_id", raw).Msg("theme not activated")
		return false
	}
	s.logger.Info().Str("theme_id", string(id)).Msg("theme activated")
	return true
}

// Current returns the active identifier and its theme.
func (s *Selector) Current() (ID, Theme) {
	id := s.store.Get()
	t, ok := Lookup(id)
	if !ok {
		return DefaultID, Default()
	}
	return id, t
}

// ID returns the active identifier.
func (s *Selector) ID() ID {
	id, _ := s.Current()
	return id
}

// Theme returns the active theme.
func (s *Selector) Theme() Theme {
	_, t := s.Current()
	return t
}

// Ready reports whether bootstrap has completed.
func (s *Selector) Ready() bool {
	return s.store.Ready()
}

// Done is closed once bootstrap has completed.
func (s *Selector) Done() <-chan struct{} {
	return s.store.Done()
}

// Subscribe observes selection changes.
func (s *Selector) Subscribe(fn selection.Listener[ID]) func() {
	return s.store.Subscribe(fn)
}

// Flush waits for queued writes.
func (s *Selector) Flush(ctx context.Context) error {
	return s.store.Flush(ctx)
}

// Close drains queued writes and stops persisting.
func (s *Selector) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
