// Package selection implements a process-wide value that is bootstrapped once
// from durable key-value storage and re-persisted, best-effort, on change.
//
// The in-memory value is authoritative for the running process. Storage is
// only read during Bootstrap; writes triggered by Set and Reset are queued
// and applied in issue order by a background writer, and their failures are
// logged rather than returned.
package selection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/logging"
	"github.com/rs/zerolog"
)

// Store errors.
var (
	ErrNotReady = errors.New("selection store is not ready")
	ErrNoStore  = errors.New("no durable store configured")
)

// Phase is the bootstrap lifecycle of a Store.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseBootstrapping
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Binding maps a value of type T onto durable storage.
type Binding[T any] interface {
	// Default is the value used before bootstrap and whenever loading fails.
	Default() T
	// Load reads and validates the persisted value. Any error makes the
	// store fall back to Default.
	Load(ctx context.Context, store kv.Store) (T, error)
	// Save persists value.
	Save(ctx context.Context, store kv.Store, value T) error
	// Clear removes whatever Save wrote.
	Clear(ctx context.Context, store kv.Store) error
}

// Reason says why the value changed.
type Reason string

const (
	ReasonBootstrap Reason = "bootstrap"
	ReasonSet       Reason = "set"
	ReasonReset     Reason = "reset"
)

// Change is delivered to listeners after every state transition.
type Change[T any] struct {
	Previous T
	Current  T
	Reason   Reason
	// Restored is true when a bootstrap loaded a persisted value.
	Restored bool
}

// Listener observes changes. Listeners run synchronously on the goroutine
// that made the change, after the store's lock is released.
type Listener[T any] func(Change[T])

// Option configures a Store.
type Option func(*options)

type options struct {
	logger    *zerolog.Logger
	onPersist func(op string, err error)
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithPersistHook is called after every background write with its outcome.
func WithPersistHook(fn func(op string, err error)) Option {
	return func(o *options) {
		o.onPersist = fn
	}
}

// Store holds one process-wide selection.
type Store[T any] struct {
	name    string
	binding Binding[T]
	storage kv.Store
	logger  zerolog.Logger
	writer  *writer

	mu        sync.RWMutex
	phase     Phase
	value     T
	ready     chan struct{}
	listeners map[int]Listener[T]
	nextID    int
}

// New creates a Store in PhaseUninitialized holding binding.Default().
// A nil storage is treated as permanently unavailable.
func New[T any](name string, storage kv.Store, binding Binding[T], opts ...Option) *Store[T] {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := logging.Component("selection")
	if cfg.logger != nil {
		logger = *cfg.logger
	}
	logger = logger.With().Str("selection", name).Logger()

	return &Store[T]{
		name:      name,
		binding:   binding,
		storage:   storage,
		logger:    logger,
		writer:    newWriter(logger, cfg.onPersist),
		value:     binding.Default(),
		ready:     make(chan struct{}),
		listeners: make(map[int]Listener[T]),
	}
}

// Name returns the store name used in logs.
func (s *Store[T]) Name() string {
	return s.name
}

// Bootstrap loads the persisted value once. Later calls return immediately
// once the first has finished; a call made while another is in flight
// waits for it or for ctx. Bootstrap never fails: storage errors and invalid
// values leave the default in place and are only logged.
func (s *Store[T]) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	if s.phase != PhaseUninitialized {
		ready := s.ready
		s.mu.Unlock()
		select {
		case <-ready:
		case <-ctx.Done():
		}
		return
	}
	s.phase = PhaseBootstrapping
	s.mu.Unlock()

	value, err := s.load(ctx)
	restored := err == nil
	if err != nil {
		s.logger.Warn().Err(err).Msg("bootstrap failed, using default")
		value = s.binding.Default()
	} else {
		s.logger.Debug().Msg("bootstrap loaded persisted value")
	}

	s.mu.Lock()
	prev := s.value
	s.value = value
	s.phase = PhaseReady
	close(s.ready)
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, Change[T]{Previous: prev, Current: value, Reason: ReasonBootstrap, Restored: restored})
}

func (s *Store[T]) load(ctx context.Context) (value T, err error) {
	if s.storage == nil {
		return value, ErrNoStore
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load panicked: %v", r)
		}
	}()
	return s.binding.Load(ctx, s.storage)
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Phase returns the lifecycle phase.
func (s *Store[T]) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Ready reports whether Bootstrap has completed.
func (s *Store[T]) Ready() bool {
	return s.Phase() == PhaseReady
}

// Done is closed when Bootstrap completes.
func (s *Store[T]) Done() <-chan struct{} {
	return s.ready
}

// Set replaces the value and queues a best-effort save.
func (s *Store[T]) Set(value T) error {
	s.mu.Lock()
	if s.phase != PhaseReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	prev := s.value
	s.value = value
	// Queue under the lock so storage sees writes in the same order as memory.
	s.persist("save", func(ctx context.Context, storage kv.Store) error {
		return s.binding.Save(ctx, storage, value)
	})
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, Change[T]{Previous: prev, Current: value, Reason: ReasonSet})
	return nil
}

// Reset restores the default value and queues a best-effort clear.
func (s *Store[T]) Reset() error {
	s.mu.Lock()
	if s.phase != PhaseReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	prev := s.value
	s.value = s.binding.Default()
	current := s.value
	s.persist("clear", func(ctx context.Context, storage kv.Store) error {
		return s.binding.Clear(ctx, storage)
	})
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	notify(listeners, Change[T]{Previous: prev, Current: current, Reason: ReasonReset})
	return nil
}

func (s *Store[T]) persist(op string, fn func(context.Context, kv.Store) error) {
	if s.storage == nil {
		s.logger.Debug().Str("op", op).Msg("no durable store, skipping persist")
		return
	}
	storage := s.storage
	s.writer.enqueue(job{op: op, run: func(ctx context.Context) error {
		return fn(ctx, storage)
	}})
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store[T]) Subscribe(fn Listener[T]) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store[T]) snapshotListeners() []Listener[T] {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Listener[T], 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func notify[T any](listeners []Listener[T], change Change[T]) {
	for _, fn := range listeners {
		fn(change)
	}
}

// Flush waits until every queued write has been applied or ctx is done.
func (s *Store[T]) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close stops accepting writes and waits for queued ones to drain.
func (s *Store[T]) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}
