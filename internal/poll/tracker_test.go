package poll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cybersectk/cstk/internal/jobs"
)

// scriptedFetch replays a fixed sequence of observations, then repeats the
// last one forever.
func scriptedFetch(script ...jobs.StatusUpdate) (StatusFunc, *atomic.Int64) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, id string) (jobs.StatusUpdate, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(script) {
			n = len(script) - 1
		}
		return script[n], nil
	}
	return fetch, &calls
}

func fastOpts() Options {
	return Options{Interval: time.Millisecond, MaxBackoff: 8 * time.Millisecond, MaxDuration: time.Second}
}

func collect(t *testing.T, sub *Subscription) []Update {
	t.Helper()
	var got []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-sub.Updates():
			if !ok {
				return got
			}
			got = append(got, u)
		case <-timeout:
			t.Fatal("subscription never ended")
		}
	}
}

func TestWatchEndsAtTerminalState(t *testing.T) {
	fetch, calls := scriptedFetch(
		jobs.StatusUpdate{Status: "queued"},
		jobs.StatusUpdate{Status: "running", Progress: 40},
		jobs.StatusUpdate{Status: "completed", Progress: 100},
	)
	tr := NewTracker(fetch, fastOpts())
	defer tr.Close()

	got := collect(t, tr.Watch(context.Background(), "j1"))
	if len(got) != 3 {
		t.Fatalf("expected 3 updates, got %d: %v", len(got), got)
	}
	if got[2].Status != jobs.StatusCompleted {
		t.Errorf("last update should be terminal, got %v", got[2].Status)
	}

	// Terminal means final: no poll may fire after the channel closes.
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("polling continued after terminal state: %d -> %d", after, calls.Load())
	}
}

func TestWatchSameIDCancelsPrior(t *testing.T) {
	fetch, _ := scriptedFetch(jobs.StatusUpdate{Status: "running"})
	tr := NewTracker(fetch, fastOpts())
	defer tr.Close()

	ctx := context.Background()
	first := tr.Watch(ctx, "j1")
	second := tr.Watch(ctx, "j1")

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first subscription was not cancelled by the second Watch")
	}

	tr.mu.Lock()
	active := len(tr.active)
	current := tr.active["j1"]
	tr.mu.Unlock()
	if active != 1 || current != second {
		t.Errorf("expected exactly the new subscription to be active, got %d", active)
	}
	second.Stop()
}

func TestTransientErrorsBackOffWithoutEnding(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context, id string) (jobs.StatusUpdate, error) {
		switch calls.Add(1) {
		case 1, 2:
			return jobs.StatusUpdate{}, fmt.Errorf("connection refused")
		default:
			return jobs.StatusUpdate{Status: "completed"}, nil
		}
	}
	tr := NewTracker(fetch, fastOpts())
	defer tr.Close()

	got := collect(t, tr.Watch(context.Background(), "j1"))
	if len(got) != 3 {
		t.Fatalf("expected 2 error updates then terminal, got %v", got)
	}
	if got[0].Err == nil || got[1].Err == nil {
		t.Error("transport failures should surface as error updates")
	}
	if got[2].Status != jobs.StatusCompleted {
		t.Errorf("watch should recover to terminal, got %v", got[2])
	}
}

func TestWatchTimesOut(t *testing.T) {
	fetch, _ := scriptedFetch(jobs.StatusUpdate{Status: "running"})
	tr := NewTracker(fetch, Options{Interval: time.Millisecond, MaxBackoff: time.Millisecond, MaxDuration: 15 * time.Millisecond})
	defer tr.Close()

	got := collect(t, tr.Watch(context.Background(), "stuck"))
	if len(got) == 0 {
		t.Fatal("expected at least one update")
	}
	last := got[len(got)-1]
	if !errors.Is(last.Err, ErrWatchTimeout) {
		t.Errorf("expected final ErrWatchTimeout, got %v", last)
	}
}

func TestStopEndsWatch(t *testing.T) {
	fetch, _ := scriptedFetch(jobs.StatusUpdate{Status: "running"})
	tr := NewTracker(fetch, fastOpts())
	defer tr.Close()

	sub := tr.Watch(context.Background(), "j1")
	sub.Stop()
	sub.Stop() // idempotent

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop did not end the subscription")
	}

	tr.mu.Lock()
	_, still := tr.active["j1"]
	tr.mu.Unlock()
	if still {
		t.Error("stopped subscription should be removed from the active set")
	}
}

func TestContextCancelEndsWatch(t *testing.T) {
	fetch, _ := scriptedFetch(jobs.StatusUpdate{Status: "running"})
	tr := NewTracker(fetch, fastOpts())
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := tr.Watch(ctx, "j1")
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("context cancellation did not end the subscription")
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second
	want := []time.Duration{
		2 * time.Second,  // streak 1
		4 * time.Second,  // streak 2
		8 * time.Second,  // streak 3
		16 * time.Second, // streak 4
		30 * time.Second, // streak 5 capped
		30 * time.Second, // streak 6 capped
	}
	for i, w := range want {
		if got := backoff(base, i+1, max); got != w {
			t.Errorf("backoff streak %d = %v, want %v", i+1, got, w)
		}
	}
}
