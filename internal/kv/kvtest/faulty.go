// Package kvtest provides kv.Store doubles for tests.
package kvtest

import (
	"context"
	"errors"
	"sync"

	"github.com/desolution/erpshell/internal/kv"
)

// ErrInjected is the failure returned by Faulty when an operation is broken.
var ErrInjected = errors.New("injected storage failure")

// Op names a storage operation.
type Op string

// Storage operations.
const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Faulty wraps a kv.Store and fails selected operations or keys.
type Faulty struct {
	Inner kv.Store

	mu    sync.Mutex
	all   bool
	ops   map[Op]bool
	keys  map[string]bool
	calls []Call
}

// Call records one operation seen by Faulty.
type Call struct {
	Op    Op
	Key   string
	Value string
}

// NewFaulty wraps inner. A nil inner uses a fresh kv.Memory.
func NewFaulty(inner kv.Store) *Faulty {
	if inner == nil {
		inner = kv.NewMemory()
	}
	return &Faulty{
		Inner: inner,
		ops:   make(map[Op]bool),
		keys:  make(map[string]bool),
	}
}

// FailAll makes every operation fail.
func (f *Faulty) FailAll() *Faulty {
	f.mu.Lock()
	f.all = true
	f.mu.Unlock()
	return f
}

// FailOp makes every call of op fail.
func (f *Faulty) FailOp(op Op) *Faulty {
	f.mu.Lock()
	f.ops[op] = true
	f.mu.Unlock()
	return f
}

// FailKey makes every operation on key fail.
func (f *Faulty) FailKey(key string) *Faulty {
	f.mu.Lock()
	f.keys[key] = true
	f.mu.Unlock()
	return f
}

// Heal clears all injected failures.
func (f *Faulty) Heal() {
	f.mu.Lock()
	f.all = false
	f.ops = make(map[Op]bool)
	f.keys = make(map[string]bool)
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *Faulty) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Faulty) check(op Op, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Key: key, Value: value})
	if f.all || f.ops[op] || f.keys[key] {
		return ErrInjected
	}
	return nil
}

// Get implements kv.Store.
func (f *Faulty) Get(ctx context.Context, key string) (string, bool, error) {
	if err := f.check(OpGet, key, ""); err != nil {
		return "", false, err
	}
	return f.Inner.Get(ctx, key)
}

// Set implements kv.Store.
func (f *Faulty) Set(ctx context.Context, key, value string) error {
	if err := f.check(OpSet, key, value); err != nil {
		return err
	}
	return f.Inner.Set(ctx, key, value)
}

// Delete implements kv.Store.
func (f *Faulty) Delete(ctx context.Context, key string) error {
	if err := f.check(OpDelete, key, ""); err != nil {
		return err
	}
	return f.Inner.Delete(ctx, key)
}
