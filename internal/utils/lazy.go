package utils

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadState is the lifecycle of a Lazy value
type LoadState int

const (
	NotStarted LoadState = iota
	InFlight
	Ready
	// Failed means the last attempt errored. It behaves like NotStarted:
	// the next Get starts a fresh attempt.
	Failed
)

func (s LoadState) String() string {
	switch s {
	case InFlight:
		return "in_flight"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "not_started"
	}
}

// Lazy runs an initializer at most once at a time and caches its result.
// Concurrent callers wait on the same in-flight attempt. A failed attempt is
// not cached, so a later call retries.
type Lazy[T any] struct {
	init  func(ctx context.Context) (T, error)
	group singleflight.Group

	mu      sync.Mutex
	state   LoadState
	value   T
	lastErr error
}

// NewLazy wraps init
func NewLazy[T any](init func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the value, running the initializer if needed. The attempt
// itself is detached from ctx cancellation so one caller giving up does not
// fail the others; ctx only bounds how long this caller waits.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.state == Ready {
		v := l.value
		l.mu.Unlock()
		return v, nil
	}
	l.mu.Unlock()

	ch := l.group.DoChan("init", func() (any, error) {
		l.mu.Lock()
		if l.state == Ready {
			v := l.value
			l.mu.Unlock()
			return v, nil
		}
		l.state = InFlight
		l.mu.Unlock()

		v, err := l.init(context.WithoutCancel(ctx))

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = Failed
			l.lastErr = err
			return nil, err
		}
		l.value = v
		l.state = Ready
		l.lastErr = nil
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Peek returns the value without triggering initialization
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.state == Ready
}

// State reports the current lifecycle state
func (l *Lazy[T]) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsReady reports whether a value is cached
func (l *Lazy[T]) IsReady() bool {
	return l.State() == Ready
}

// LastError returns the error of the most recent failed attempt
func (l *Lazy[T]) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Reset drops a cached value so the next Get initializes again. It returns
// the dropped value, if any. An in-flight attempt is left to finish.
func (l *Lazy[T]) Reset() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	if l.state != Ready {
		return zero, false
	}
	v := l.value
	l.value = zero
	l.state = NotStarted
	return v, true
}
