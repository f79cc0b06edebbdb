// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_InvalidSchedule(t *testing.T) {
	for _, spec := range []string{"", "every minute", "@every", "61 * * * *"} {
		if _, err := New(spec, func(context.Context) {}); err == nil {
			t.Errorf("New(%q): expected error", spec)
		}
	}
}

func TestNew_AcceptsDescriptorsAndCron(t *testing.T) {
	for _, spec := range []string{"@every 1m", "@hourly", "*/5 * * * *"} {
		if _, err := New(spec, func(context.Context) {}); err != nil {
			t.Errorf("New(%q): %v", spec, err)
		}
	}
}

func TestTrigger_SkipsWhileRunning(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	s, err := New("@every 1h", func(context.Context) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Trigger()
	}()
	<-started

	// A second trigger while the first is blocked returns without running.
	s.Trigger()
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d while first run active, want 1", got)
	}

	close(release)
	wg.Wait()

	s.Trigger()
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d after release, want 2", got)
	}
}

func TestRun_RunNowAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 1)
	s, err := New("@every 1h", func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, true) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("job did not run on start")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRun_WaitsForActiveJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var finished atomic.Bool
	var jobCtxErr atomic.Value

	s, err := New("@every 1h", func(jobCtx context.Context) {
		close(started)
		// Shutdown is requested while the job is running.
		cancel()
		time.Sleep(100 * time.Millisecond)
		if err := jobCtx.Err(); err != nil {
			jobCtxErr.Store(err)
		}
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.Run(ctx, true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-started
	if !finished.Load() {
		t.Fatalf("Run returned before the active job finished")
	}
	if v := jobCtxErr.Load(); v != nil {
		t.Fatalf("job context was cancelled: %v", v)
	}
}
