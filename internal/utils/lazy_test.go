package utils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLazy_SharesInFlightAttempt(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	lazy := NewLazy(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "ready", nil
	})

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := lazy.Get(context.Background())
			if err != nil {
				t.Errorf("Get() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	// wait until the attempt is running before releasing it
	deadline := time.Now().Add(2 * time.Second)
	for lazy.State() != InFlight && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("initializer ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != "ready" {
			t.Errorf("results[%d] = %q, want ready", i, v)
		}
	}
	if !lazy.IsReady() {
		t.Error("IsReady() = false after success")
	}
}

func TestLazy_FailureResetsForRetry(t *testing.T) {
	var calls int32
	lazy := NewLazy(func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, errors.New("boom")
		}
		return 42, nil
	})

	if _, err := lazy.Get(context.Background()); err == nil {
		t.Fatal("first Get() error = nil, want boom")
	}
	if lazy.State() != Failed {
		t.Errorf("State() = %s, want failed", lazy.State())
	}
	if lazy.LastError() == nil {
		t.Error("LastError() = nil after failure")
	}

	v, err := lazy.Get(context.Background())
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if v != 42 || !lazy.IsReady() {
		t.Errorf("Get() = %d ready=%v, want 42 ready", v, lazy.IsReady())
	}
	if lazy.LastError() != nil {
		t.Error("LastError() should clear after success")
	}
}

func TestLazy_CallerCancellationDoesNotAbortAttempt(t *testing.T) {
	release := make(chan struct{})
	lazy := NewLazy(func(ctx context.Context) (string, error) {
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "done", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := lazy.Get(ctx)
		errCh <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for lazy.State() != InFlight && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Get() error = %v, want context.Canceled", err)
	}

	close(release)
	v, err := lazy.Get(context.Background())
	if err != nil || v != "done" {
		t.Errorf("Get() = %q, %v; want done", v, err)
	}
}

func TestLazy_Reset(t *testing.T) {
	var calls int32
	lazy := NewLazy(func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	})

	if _, ok := lazy.Reset(); ok {
		t.Error("Reset() on empty Lazy reported a value")
	}
	first, _ := lazy.Get(context.Background())
	if v, ok := lazy.Peek(); !ok || v != first {
		t.Errorf("Peek() = %d, %v", v, ok)
	}
	if _, ok := lazy.Reset(); !ok {
		t.Error("Reset() on ready Lazy reported nothing")
	}
	if lazy.State() != NotStarted {
		t.Errorf("State() = %s after Reset, want not_started", lazy.State())
	}
	second, _ := lazy.Get(context.Background())
	if second == first {
		t.Errorf("Get() after Reset returned cached value %d", second)
	}
}
