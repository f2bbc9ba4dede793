package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/api"
	"github.com/cybersectk/cstk/internal/config"
	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/journal"
	"github.com/cybersectk/cstk/internal/notify"
	"github.com/cybersectk/cstk/internal/poll"
	"github.com/cybersectk/cstk/internal/results"
)

var watchCmd = &cobra.Command{
	Use:   "watch <kind> <job-id>",
	Short: "Follow a job until it reaches a terminal state",
	Long: `Polls the job's status endpoint until it completes, fails, or is
cancelled, then loads and prints the result collections for completed jobs.

Transient poll errors stretch the next delay instead of ending the watch;
a job that never terminates within the configured maximum duration does.

Examples:
  cstk watch port_scan 1234
  cstk watch contract_audit a81f-44c2`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, client, err := loadClient()
	if err != nil {
		return err
	}
	kind, err := jobs.ParseKind(args[0])
	if err != nil {
		return err
	}
	svc, err := jobs.ServiceFor(kind)
	if err != nil {
		return err
	}
	return watchJob(ctx, cfg, client, svc, args[1])
}

// watchJob drives one subscription to its end: it prints every observation,
// journals the outcome, notifies configured channels, and for completed jobs
// loads the result collections exactly once.
func watchJob(ctx context.Context, cfg *config.Config, client *api.Client, svc jobs.Service, id string) error {
	jobsAPI := jobs.NewAPI(client)

	tracker := poll.NewTracker(
		func(ctx context.Context, jid string) (jobs.StatusUpdate, error) {
			return jobsAPI.Status(ctx, svc, jid)
		},
		poll.Options{
			Interval:    cfg.Watch.Interval(),
			MaxBackoff:  cfg.Watch.MaxBackoff(),
			MaxDuration: cfg.Watch.MaxDuration(),
		},
	)
	defer tracker.Close()

	fmt.Printf("Watching %s %s (every %s)\n", svc.Kind, id, cfg.Watch.Interval())

	var final poll.Update
	var timedOut bool
	for u := range tracker.Watch(ctx, id).Updates() {
		switch {
		case errors.Is(u.Err, poll.ErrWatchTimeout):
			timedOut = true
		case u.Err != nil:
			fmt.Println(warnStyle.Render("poll error: " + u.Err.Error() + " (backing off)"))
		default:
			final = u
			line := fmt.Sprintf("  %-12s", u.Raw)
			if u.Progress > 0 {
				line += fmt.Sprintf(" %3d%%", u.Progress)
			}
			if u.Message != "" {
				line += "  " + u.Message
			}
			fmt.Println(line)
		}
	}

	if timedOut {
		return fmt.Errorf("%s %s: %w", svc.Kind, id, poll.ErrWatchTimeout)
	}
	if !final.Status.Terminal() {
		return fmt.Errorf("watch of %s %s ended before a terminal state", svc.Kind, id)
	}

	recordOutcome(ctx, cfg, id, final)
	sendOutcomeEvent(ctx, cfg, svc, id, final)

	if !final.Status.Succeeded() {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%s %s %s", svc.Label, id, final.Status)))
		if final.Message != "" {
			fmt.Println(dimStyle.Render("  " + final.Message))
		}
		return nil
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("%s %s completed", svc.Label, id)))
	cols, err := results.NewLoader(client).Load(ctx, svc, id, final.Status)
	if err != nil {
		return err
	}
	printCollections(cols)
	return nil
}

func printCollections(cols []results.Collection) {
	for _, c := range cols {
		switch {
		case c.Err != nil:
			fmt.Printf("%s: %s\n", c.Name, warnStyle.Render(c.Err.Error()))
		case c.Empty():
			fmt.Printf("%s: %s\n", c.Name, dimStyle.Render("none found"))
		default:
			fmt.Printf("%s: %d\n", c.Name, len(c.Records))
			for i, rec := range c.Records {
				if i >= 10 {
					fmt.Println(dimStyle.Render(fmt.Sprintf("  … and %d more", len(c.Records)-10)))
					break
				}
				fmt.Println("  " + dimStyle.Render(summariseRecord(rec)))
			}
		}
	}
}

// summariseRecord picks the most recognisable fields of a schemaless record.
func summariseRecord(rec results.Record) string {
	for _, key := range []string{"title", "name", "description", "ip", "url", "action"} {
		if v, ok := rec[key].(string); ok && v != "" {
			if sev, ok := rec["severity"].(string); ok && sev != "" {
				return fmt.Sprintf("[%s] %s", sev, v)
			}
			return v
		}
	}
	return fmt.Sprintf("%v", rec)
}

func recordOutcome(ctx context.Context, cfg *config.Config, id string, final poll.Update) {
	db, err := openJournal(ctx, cfg)
	if err != nil {
		slog.Warn("outcome not journaled", "error", err)
		return
	}
	defer db.Close()

	errMsg := ""
	if !final.Status.Succeeded() {
		errMsg = final.Message
	}
	if err := journal.RecordOutcome(ctx, db, id, string(final.Status), errMsg); err != nil {
		slog.Warn("outcome not journaled", "error", err)
	}
}

func sendOutcomeEvent(ctx context.Context, cfg *config.Config, svc jobs.Service, id string, final poll.Update) {
	d := notify.NewDispatcher(cfg.Notify)
	if !d.IsAnyConfigured() {
		return
	}
	evtType := "job.failed"
	switch final.Status {
	case jobs.StatusCompleted:
		evtType = "job.completed"
	case jobs.StatusCancelled:
		evtType = "job.cancelled"
	}
	d.Notify(ctx, notify.Event{
		Type:  evtType,
		Title: fmt.Sprintf("%s %s %s", svc.Label, id, final.Status),
		Body:  final.Message,
		JobID: id,
		Kind:  string(svc.Kind),
	})
}
