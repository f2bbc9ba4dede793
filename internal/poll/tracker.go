// Package poll tracks long-running backend jobs to a terminal state.
//
// Each watched job is represented by an explicit cancellable Subscription
// owned by the view that created it, so every timer started has a matching
// cancellation and nothing keeps polling a dismissed view.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cybersectk/cstk/internal/jobs"
)

// ErrWatchTimeout ends a subscription whose job never reached a terminal
// state within the configured maximum duration.
var ErrWatchTimeout = errors.New("watch exceeded maximum poll duration")

// StatusFunc fetches one status observation for a job id.
type StatusFunc func(ctx context.Context, id string) (jobs.StatusUpdate, error)

// Update is one observation delivered to a subscription.
// Err is set on transport failures and on ErrWatchTimeout; a transport error
// does not end the subscription, it only stretches the next delay.
type Update struct {
	Status   jobs.Status
	Raw      string
	Progress int
	Message  string
	Err      error
}

// Options tune a Tracker. Zero values fall back to the defaults observed in
// the product: 2s interval, 30s backoff cap, 30m watch cap.
type Options struct {
	Interval    time.Duration
	MaxBackoff  time.Duration
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 30 * time.Minute
	}
	return o
}

// Tracker owns at most one active subscription per job id. Watching an id
// that is already watched cancels the prior subscription before the new one
// starts, so timers can never accumulate per job.
type Tracker struct {
	fetch StatusFunc
	opts  Options

	mu     sync.Mutex
	active map[string]*Subscription
}

// NewTracker builds a Tracker polling through fetch.
func NewTracker(fetch StatusFunc, opts Options) *Tracker {
	return &Tracker{
		fetch:  fetch,
		opts:   opts.withDefaults(),
		active: make(map[string]*Subscription),
	}
}

// Subscription is one job watch. Updates() is closed when polling ends for
// any reason: terminal status, Stop, context cancellation, or timeout.
type Subscription struct {
	id      string
	updates chan Update
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
}

// ID returns the watched job identifier.
func (s *Subscription) ID() string { return s.id }

// Updates delivers observations until polling ends, then is closed.
func (s *Subscription) Updates() <-chan Update { return s.updates }

// Done is closed once the polling goroutine has fully exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Stop cancels the subscription. Safe to call more than once.
func (s *Subscription) Stop() { s.stop.Do(s.cancel) }

// Watch starts polling the job id. Any prior subscription for the same id is
// cancelled and fully drained before the new one begins.
func (t *Tracker) Watch(ctx context.Context, id string) *Subscription {
	wctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		id:      id,
		updates: make(chan Update, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	t.mu.Lock()
	prev := t.active[id]
	t.active[id] = sub
	t.mu.Unlock()

	if prev != nil {
		prev.Stop()
		<-prev.done
	}

	go t.run(wctx, sub)
	return sub
}

// Close cancels every active subscription and waits for their goroutines.
func (t *Tracker) Close() {
	t.mu.Lock()
	subs := make([]*Subscription, 0, len(t.active))
	for _, s := range t.active {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.Stop()
		<-s.done
	}
}

func (t *Tracker) run(ctx context.Context, sub *Subscription) {
	defer func() {
		t.mu.Lock()
		if t.active[sub.id] == sub {
			delete(t.active, sub.id)
		}
		t.mu.Unlock()
		close(sub.updates)
		close(sub.done)
	}()

	deadline := time.Now().Add(t.opts.MaxDuration)
	errStreak := 0

	// First poll fires immediately; later delays are interval or backoff.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		var delay time.Duration
		u, err := t.fetch(ctx, sub.id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			errStreak++
			delay = backoff(t.opts.Interval, errStreak, t.opts.MaxBackoff)
			if !t.emit(ctx, sub, Update{Err: err}) {
				return
			}
		default:
			errStreak = 0
			delay = t.opts.Interval
			up := Update{
				Status:   u.Parsed(),
				Raw:      u.Status,
				Progress: u.Progress,
				Message:  u.Message,
			}
			if !t.emit(ctx, sub, up) {
				return
			}
			if up.Status.Terminal() {
				// Terminal is final: the timer is never rearmed.
				return
			}
		}

		if time.Now().After(deadline) {
			t.emit(ctx, sub, Update{Err: ErrWatchTimeout})
			return
		}
		timer.Reset(delay)
	}
}

// emit delivers u unless the subscription has been cancelled.
func (t *Tracker) emit(ctx context.Context, sub *Subscription, u Update) bool {
	select {
	case sub.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// backoff doubles the base delay per consecutive error, capped at max.
func backoff(base time.Duration, streak int, max time.Duration) time.Duration {
	d := base
	for i := 1; i < streak; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
