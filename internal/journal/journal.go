package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Submission is one recorded job submission. Field order matches the
// column order selected by the queries below; scanRow relies on it.
type Submission struct {
	ID          int64   `db:"id" json:"id"`
	JobID       string  `db:"job_id" json:"job_id"`
	Kind        string  `db:"kind" json:"kind"`
	Target      string  `db:"target" json:"target"`
	Status      string  `db:"status" json:"status"`
	ErrorMsg    string  `db:"error_msg" json:"error_msg,omitempty"`
	ConfigJSON  string  `db:"config_json" json:"config_json,omitempty"`
	SubmittedAt string  `db:"submitted_at" json:"submitted_at"`
	CompletedAt *string `db:"completed_at" json:"completed_at,omitempty"`
}

// Schedule is one recurring submission definition.
type Schedule struct {
	ID         int64   `db:"id" json:"id"`
	Name       string  `db:"name" json:"name"`
	Expr       string  `db:"expr" json:"expr"`
	Kind       string  `db:"kind" json:"kind"`
	ConfigJSON string  `db:"config_json" json:"config_json,omitempty"`
	Enabled    bool    `db:"enabled" json:"enabled"`
	LastRunAt  *string `db:"last_run_at" json:"last_run_at,omitempty"`
	CreatedAt  string  `db:"created_at" json:"created_at"`
	UpdatedAt  string  `db:"updated_at" json:"updated_at"`
}

// Config decodes the stored job configuration.
func (s Schedule) Config() (map[string]any, error) {
	if s.ConfigJSON == "" {
		return map[string]any{}, nil
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(s.ConfigJSON), &cfg); err != nil {
		return nil, fmt.Errorf("decoding schedule %d config: %w", s.ID, err)
	}
	return cfg, nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// RecordSubmission stores a freshly submitted job.
func RecordSubmission(ctx context.Context, db DB, jobID, kind, target string, cfg map[string]any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding job config: %w", err)
	}
	_, err = db.Insert(ctx, "submissions", Submission{
		JobID:       jobID,
		Kind:        kind,
		Target:      target,
		Status:      "submitted",
		ConfigJSON:  string(raw),
		SubmittedAt: now(),
	})
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", jobID, err)
	}
	return nil
}

// RecordOutcome updates a submission with its terminal status.
func RecordOutcome(ctx context.Context, db DB, jobID, status, errMsg string) error {
	err := db.Exec(ctx,
		`UPDATE submissions SET status = ?, error_msg = ?, completed_at = ? WHERE job_id = ?`,
		status, errMsg, now(), jobID)
	if err != nil {
		return fmt.Errorf("recording outcome for %s: %w", jobID, err)
	}
	return nil
}

// History returns the most recent submissions, newest first.
func History(ctx context.Context, db DB, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	var subs []Submission
	err := db.Select(ctx, &subs,
		`SELECT id, job_id, kind, target, status, error_msg, config_json, submitted_at, completed_at
		 FROM submissions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading submission history: %w", err)
	}
	return subs, nil
}

// SaveSchedule stores a new schedule and returns its ID.
func SaveSchedule(ctx context.Context, db DB, sched Schedule) (int64, error) {
	ts := now()
	sched.CreatedAt = ts
	sched.UpdatedAt = ts
	id, err := db.Insert(ctx, "schedules", sched)
	if err != nil {
		return 0, fmt.Errorf("saving schedule %q: %w", sched.Name, err)
	}
	return id, nil
}

// ListSchedules returns all schedules, optionally only enabled ones.
func ListSchedules(ctx context.Context, db DB, enabledOnly bool) ([]Schedule, error) {
	query := `SELECT id, name, expr, kind, config_json, enabled, last_run_at, created_at, updated_at
		 FROM schedules`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY id`

	var scheds []Schedule
	if err := db.Select(ctx, &scheds, query); err != nil {
		return nil, fmt.Errorf("loading schedules: %w", err)
	}
	return scheds, nil
}

// GetSchedule returns one schedule by ID.
func GetSchedule(ctx context.Context, db DB, id int64) (Schedule, error) {
	var sched Schedule
	err := db.Get(ctx, &sched,
		`SELECT id, name, expr, kind, config_json, enabled, last_run_at, created_at, updated_at
		 FROM schedules WHERE id = ?`, id)
	if err != nil {
		return Schedule{}, fmt.Errorf("loading schedule %d: %w", id, err)
	}
	return sched, nil
}

// DeleteSchedule removes one schedule by ID.
func DeleteSchedule(ctx context.Context, db DB, id int64) error {
	if err := db.Exec(ctx, `DELETE FROM schedules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting schedule %d: %w", id, err)
	}
	return nil
}

// SetScheduleEnabled flips a schedule on or off.
func SetScheduleEnabled(ctx context.Context, db DB, id int64, enabled bool) error {
	err := db.Exec(ctx,
		`UPDATE schedules SET enabled = ?, updated_at = ? WHERE id = ?`,
		enabled, now(), id)
	if err != nil {
		return fmt.Errorf("updating schedule %d: %w", id, err)
	}
	return nil
}

// TouchSchedule records the last time a schedule fired.
func TouchSchedule(ctx context.Context, db DB, id int64) error {
	ts := now()
	err := db.Exec(ctx,
		`UPDATE schedules SET last_run_at = ?, updated_at = ? WHERE id = ?`,
		ts, ts, id)
	if err != nil {
		return fmt.Errorf("touching schedule %d: %w", id, err)
	}
	return nil
}
