package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/config"
	"github.com/desolution/erpshell/internal/db"
	"github.com/desolution/erpshell/internal/events"
	"github.com/desolution/erpshell/internal/kv"
	"github.com/desolution/erpshell/internal/selection"
	"github.com/desolution/erpshell/internal/session"
	"github.com/desolution/erpshell/internal/theme"
)

const closeTimeout = 5 * time.Second

// app bundles the stores a command works with.
type app struct {
	cfg       *config.Config
	storage   kv.Store
	database  *db.DB
	eventRepo *db.EventRepository
	themes    *theme.Selector
	sessions  *session.Store
	recorder  *events.Recorder

	closers []func() error
	unwatch []func()

	mu          sync.Mutex
	persistErrs []error
}

// openApp opens storage for cfg and wires the stores and audit recorder.
// The stores are not bootstrapped.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		a.storage = kv.NewMemory()
	case config.StorageRedis:
		redisStore, err := kv.NewRedis(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisPrefix)
		if err != nil {
			return nil, &PreflightError{
				Message:  "Cannot reach Redis",
				Hint:     err.Error(),
				NextStep: "erpshell --storage sqlite <command>",
			}
		}
		a.storage = redisStore
		a.closers = append(a.closers, redisStore.Close)
		if err := a.attachDatabase(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	case config.StoragePostgres:
		pgStore, err := kv.NewPostgres(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, &PreflightError{
				Message:  "Cannot reach Postgres",
				Hint:     err.Error(),
				NextStep: "erpshell --storage sqlite <command>",
			}
		}
		a.storage = pgStore
		a.closers = append(a.closers, pgStore.Close)
		if err := a.attachDatabase(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	default:
		if err := a.attachDatabase(ctx); err != nil {
			return nil, err
		}
		a.storage = db.NewKVRepository(a.database)
	}

	a.wire()
	return a, nil
}

// newApp wires stores over existing storage. database may be nil.
func newApp(cfg *config.Config, storage kv.Store, database *db.DB) *app {
	a := &app{cfg: cfg, storage: storage, database: database}
	if database != nil {
		a.eventRepo = db.NewEventRepository(database)
	}
	a.wire()
	return a
}

func (a *app) attachDatabase(ctx context.Context) error {
	database, err := openDatabase(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.database = database
	a.eventRepo = db.NewEventRepository(database)
	a.closers = append(a.closers, database.Close)
	return nil
}

func (a *app) wire() {
	a.themes = theme.NewSelector(a.storage,
		theme.WithFallback(a.cfg.DefaultTheme()),
		theme.WithStoreOptions(selection.WithPersistHook(a.onPersist("theme"))),
	)
	a.sessions = session.NewStore(a.storage,
		session.WithStoreOptions(selection.WithPersistHook(a.onPersist("session"))),
	)

	var repo events.Repository
	if a.eventRepo != nil {
		repo = a.eventRepo
	}
	a.recorder = events.NewRecorder(repo)
	a.unwatch = append(a.unwatch, a.recorder.WatchTheme(a.themes), a.recorder.WatchSession(a.sessions))
}

func (a *app) onPersist(store string) func(op string, err error) {
	return func(op string, err error) {
		if err == nil {
			return
		}
		a.mu.Lock()
		a.persistErrs = append(a.persistErrs, fmt.Errorf("%s %s: %w", store, op, err))
		a.mu.Unlock()
	}
}

// flush waits for pending writes and audit events, and reports any
// writes that failed since the last flush.
func (a *app) flush(ctx context.Context) error {
	if err := errors.Join(a.themes.Flush(ctx), a.sessions.Flush(ctx), a.recorder.Flush(ctx)); err != nil {
		return err
	}
	a.mu.Lock()
	errs := a.persistErrs
	a.persistErrs = nil
	a.mu.Unlock()
	return errors.Join(errs...)
}

// bootstrap loads both stores.
func (a *app) bootstrap(ctx context.Context) {
	a.themes.Bootstrap(ctx)
	a.sessions.Bootstrap(ctx)
}

func (a *app) authService() *auth.Service {
	encoding, err := auth.ParseEncoding(a.cfg.API.Encoding)
	if err != nil {
		encoding = auth.EncodingJSON
	}
	client := auth.NewClient(a.cfg.API.BaseURL, encoding, a.cfg.API.Timeout)
	return auth.NewService(client, a.sessions, a.recorder)
}

// Close drains pending writes, then closes storage.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	if a.themes != nil {
		errs = append(errs, a.themes.Close(ctx))
	}
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close(ctx))
	}
	for _, unwatch := range a.unwatch {
		unwatch()
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, &PreflightError{
			Message:  "Cannot open the local database",
			Hint:     err.Error(),
			NextStep: "erpshell --data-dir <dir> <command>",
		}
	}

	applied, err := database.MigrateUp(ctx)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if applied > 0 {
		logger.Debug().Int("migrations", applied).Str("path", database.Path()).Msg("database migrated")
	}
	return database, nil
}

// withApp opens the configured app, bootstraps it and runs fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx, GetConfig())
	if err != nil {
		return err
	}
	a.bootstrap(ctx)

	runErr := fn(a)
	if err := a.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close storage cleanly")
	}
	return runErr
}
