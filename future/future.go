// Package future implements the asynchronous result primitives every
// numbered-command sender returns: a fire-once Future, an Aggregator
// that combines a stream of partial results into one final value, and
// a Waiter that blocks until a whole group of Futures has fired.
package future

import (
	"sync"

	"github.com/mit-ll/SPARTA-sub001/logx"
)

type futureState[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	fired     bool
	value     T
	callbacks []func(T)
	logger    *logx.Logger
}

// Future is a handle to a value that will become available later. The
// zero value is not usable; construct with New. A Future is cheap to
// copy: the struct holds only a pointer to its shared state, matching
// the "designed to be copied by value inexpensively" contract the
// numbered-command layer relies on when it hands the same Future to
// multiple callers.
type Future[T any] struct {
	state *futureState[T]
}

// Option configures a Future constructed by New.
type Option[T any] func(*futureState[T])

// WithLogger overrides the logger used to report a second Fire on the
// same Future. Defaults to logx.Nop().
func WithLogger[T any](l *logx.Logger) Option[T] {
	return func(s *futureState[T]) { s.logger = l }
}

// New returns a Future that has not yet fired.
func New[T any](opts ...Option[T]) Future[T] {
	s := &futureState[T]{logger: logx.Nop()}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return Future[T]{state: s}
}

// AddCallback registers cb to run with the fired value as soon as
// possible after Fire is called. If the Future has already fired, cb
// runs immediately, synchronously, on the calling goroutine.
func (f Future[T]) AddCallback(cb func(T)) {
	f.state.mu.Lock()
	if f.state.fired {
		value := f.state.value
		f.state.mu.Unlock()
		cb(value)
		return
	}
	f.state.callbacks = append(f.state.callbacks, cb)
	f.state.mu.Unlock()
}

// Fire sets the Future's value, releases every blocked Wait/Value
// caller, and runs every registered callback, in registration order,
// while holding the Future's lock — so a callback added concurrently
// with Fire either runs as part of this call or observes HasFired
// true and runs immediately via AddCallback, never both and never
// neither. A Future fires at most once; a second Fire is a detected
// programmer error.
func (f Future[T]) Fire(value T) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if f.state.fired {
		f.state.logger.Panic().Logf("future: Fire called twice on the same Future")
		return
	}
	f.state.value = value
	for _, cb := range f.state.callbacks {
		cb(value)
	}
	f.state.callbacks = nil
	f.state.fired = true
	f.state.cond.Broadcast()
}

// Wait blocks until some goroutine calls Fire.
func (f Future[T]) Wait() {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	for !f.state.fired {
		f.state.cond.Wait()
	}
}

// Value blocks until Fire is called, then returns the fired value.
func (f Future[T]) Value() T {
	f.Wait()
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	return f.state.value
}

// HasFired reports whether Fire has already been called. The result
// may be stale by the time the caller observes it unless the caller
// otherwise knows no further state transition is possible.
func (f Future[T]) HasFired() bool {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	return f.state.fired
}
