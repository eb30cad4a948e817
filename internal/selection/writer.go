package selection

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type job struct {
	op  string
	run func(ctx context.Context) error
}

// writer applies persistence jobs one at a time in enqueue order. A worker
// goroutine is started on demand and exits when the queue is empty.
type writer struct {
	logger    zerolog.Logger
	onPersist func(op string, err error)

	mu      sync.Mutex
	queue   []job
	running bool
	closed  bool
	idle    chan struct{}
}

func newWriter(logger zerolog.Logger, onPersist func(string, error)) *writer {
	idle := make(chan struct{})
	close(idle)
	return &writer{
		logger:    logger,
		onPersist: onPersist,
		idle:      idle,
	}
}

func (w *writer) enqueue(j job) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Warn().Str("op", j.op).Msg("writer closed, dropping persist")
		return
	}

	w.queue = append(w.queue, j)
	if !w.running {
		w.running = true
		w.idle = make(chan struct{})
		go w.run()
	}
}

func (w *writer) run() {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.running = false
			close(w.idle)
			w.mu.Unlock()
			return
		}
		j := w.queue[0]
		w.queue[0] = job{}
		w.queue = w.queue[1:]
		w.mu.Unlock()

		err := w.apply(j)
		if err != nil {
			w.logger.Warn().Err(err).Str("op", j.op).Msg("persist failed")
		}
		if w.onPersist != nil {
			w.onPersist(j.op, err)
		}
	}
}

func (w *writer) apply(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", j.op, r)
		}
	}()
	return j.run(context.Background())
}

func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.flush(ctx)
}
