// Package sched runs recurring job submissions. Schedules live in the
// journal database and are registered with robfig/cron; when one fires,
// the configured submit function sends the job to the backend.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/journal"
)

// SubmitFunc submits one scheduled job. It is called from cron goroutines.
type SubmitFunc func(ctx context.Context, sched journal.Schedule)

// Scheduler loads schedules from the journal and registers them with
// robfig/cron. When a schedule fires it calls submitFn and records
// last_run_at.
type Scheduler struct {
	db       journal.DB
	cron     *cron.Cron
	submitFn SubmitFunc

	mu      sync.Mutex
	entries map[int64]cron.EntryID // schedule DB id → cron entry id
}

// New creates a Scheduler; call Start to load schedules and begin firing.
func New(db journal.DB, submitFn SubmitFunc) *Scheduler {
	return &Scheduler{
		db:       db,
		cron:     cron.New(),
		submitFn: submitFn,
		entries:  make(map[int64]cron.EntryID),
	}
}

// Start loads all enabled schedules from the journal and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	schedules, err := journal.ListSchedules(ctx, s.db, true)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}

	for _, sched := range schedules {
		if err := s.register(sched); err != nil {
			slog.Warn("scheduler: skipping schedule with invalid expression",
				"id", sched.ID, "name", sched.Name, "expr", sched.Expr, "error", err)
		}
	}

	s.cron.Start()
	slog.Info("scheduler started", "schedules_loaded", len(schedules))
	return nil
}

// Stop halts the cron runner gracefully.
func (s *Scheduler) Stop() { s.cron.Stop() }

// register adds a schedule to the running cron instance.
func (s *Scheduler) register(sched journal.Schedule) error {
	if err := validateScheduleJob(sched); err != nil {
		return err
	}
	entryID, err := s.cron.AddFunc(sched.Expr, func() {
		if err := s.runSchedule(context.Background(), sched); err != nil {
			slog.Warn("scheduler: firing schedule failed",
				"id", sched.ID, "name", sched.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", sched.Expr, err)
	}
	s.mu.Lock()
	s.entries[sched.ID] = entryID
	s.mu.Unlock()
	return nil
}

// validate checks that expr is parseable by robfig/cron without adding it
// permanently to any runner.
func validate(expr string) error {
	tmp := cron.New()
	id, err := tmp.AddFunc(expr, func() {})
	if err != nil {
		return err
	}
	tmp.Remove(id)
	return nil
}

// validateScheduleJob checks the schedule's job kind and stored config
// against the service registry before it is persisted or fired.
func validateScheduleJob(sched journal.Schedule) error {
	kind, err := jobs.ParseKind(sched.Kind)
	if err != nil {
		return err
	}
	svc, err := jobs.ServiceFor(kind)
	if err != nil {
		return err
	}
	cfg, err := sched.Config()
	if err != nil {
		return err
	}
	return svc.ValidateConfig(cfg)
}

// Add validates, persists, and registers a new schedule. Returns the new DB id.
func (s *Scheduler) Add(ctx context.Context, sched journal.Schedule) (int64, error) {
	if err := validate(sched.Expr); err != nil {
		return 0, fmt.Errorf("invalid schedule expression %q: %w", sched.Expr, err)
	}
	if err := validateScheduleJob(sched); err != nil {
		return 0, err
	}

	id, err := journal.SaveSchedule(ctx, s.db, sched)
	if err != nil {
		return 0, err
	}
	sched.ID = id
	if sched.Enabled {
		if err := s.register(sched); err != nil {
			slog.Warn("scheduler: persisted but could not register schedule",
				"id", id, "error", err)
		}
	}
	return id, nil
}

// SetEnabled flips a schedule on or off, registering or unregistering it
// with the running cron instance.
func (s *Scheduler) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	sched, err := journal.GetSchedule(ctx, s.db, id)
	if err != nil {
		return err
	}
	if err := journal.SetScheduleEnabled(ctx, s.db, id, enabled); err != nil {
		return err
	}

	s.unregister(id)
	if enabled {
		sched.Enabled = true
		return s.register(sched)
	}
	return nil
}

// Delete removes a schedule from cron and the journal.
func (s *Scheduler) Delete(ctx context.Context, id int64) error {
	s.unregister(id)
	return journal.DeleteSchedule(ctx, s.db, id)
}

// List returns all schedules ordered by id.
func (s *Scheduler) List(ctx context.Context) ([]journal.Schedule, error) {
	return journal.ListSchedules(ctx, s.db, false)
}

// TriggerNow fires a schedule immediately regardless of its expression,
// recording last_run_at.
func (s *Scheduler) TriggerNow(ctx context.Context, id int64) error {
	sched, err := journal.GetSchedule(ctx, s.db, id)
	if err != nil {
		return err
	}
	return s.runSchedule(ctx, sched)
}

func (s *Scheduler) runSchedule(ctx context.Context, sched journal.Schedule) error {
	if err := validateScheduleJob(sched); err != nil {
		return err
	}
	if err := journal.TouchSchedule(ctx, s.db, sched.ID); err != nil {
		return err
	}
	s.submitFn(ctx, sched)
	return nil
}

func (s *Scheduler) unregister(id int64) {
	s.mu.Lock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()
}
