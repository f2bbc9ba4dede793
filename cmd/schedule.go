package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/journal"
	"github.com/cybersectk/cstk/internal/notify"
	"github.com/cybersectk/cstk/internal/sched"
)

var (
	scheduleName   string
	scheduleExpr   string
	scheduleKind   string
	scheduleSet    []string
	scheduleOutput string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring job submissions",
	Long: `Schedules submit jobs on a cron expression. Definitions live in the
local journal; 'cstk schedule daemon' runs them.

Examples:
  cstk schedule add --name nightly --expr "0 2 * * *" --kind vulnerability_scan --set target_url=https://internal.example.com
  cstk schedule list
  cstk schedule run 3
  cstk schedule daemon`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a schedule",
	RunE:  runScheduleAdd,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE:  runScheduleList,
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleDelete,
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Fire a schedule immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRun,
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setScheduleEnabled(args[0], true) },
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setScheduleEnabled(args[0], false) },
}

var scheduleDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run enabled schedules until interrupted",
	RunE:  runScheduleDaemon,
}

func init() {
	scheduleAddCmd.Flags().StringVar(&scheduleName, "name", "", "Schedule name (required)")
	scheduleAddCmd.Flags().StringVar(&scheduleExpr, "expr", "", "Cron expression, e.g. \"0 2 * * *\" (required)")
	scheduleAddCmd.Flags().StringVar(&scheduleKind, "kind", "", "Job kind to submit (required)")
	scheduleAddCmd.Flags().StringArrayVar(&scheduleSet, "set", nil, "Job configuration as key=value (repeatable)")
	_ = scheduleAddCmd.MarkFlagRequired("name")
	_ = scheduleAddCmd.MarkFlagRequired("expr")
	_ = scheduleAddCmd.MarkFlagRequired("kind")

	scheduleListCmd.Flags().StringVar(&scheduleOutput, "output", "table", "Output format: table|json|yaml")

	scheduleCmd.AddCommand(
		scheduleAddCmd,
		scheduleListCmd,
		scheduleDeleteCmd,
		scheduleRunCmd,
		scheduleEnableCmd,
		scheduleDisableCmd,
		scheduleDaemonCmd,
	)
}

// newScheduler wires a Scheduler that submits through the backend client,
// journals each submission, and notifies on submit failures.
func newScheduler(db journal.DB) (*sched.Scheduler, error) {
	cfg, client, err := loadClient()
	if err != nil {
		return nil, err
	}
	jobsAPI := jobs.NewAPI(client)
	dispatcher := notify.NewDispatcher(cfg.Notify)

	return sched.New(db, func(ctx context.Context, s journal.Schedule) {
		kind, err := jobs.ParseKind(s.Kind)
		if err != nil {
			slog.Error("schedule has unknown kind", "schedule", s.Name, "kind", s.Kind)
			return
		}
		svc, err := jobs.ServiceFor(kind)
		if err != nil {
			slog.Error("schedule has unknown kind", "schedule", s.Name, "kind", s.Kind)
			return
		}
		jobCfg, err := s.Config()
		if err != nil {
			slog.Error("schedule config unreadable", "schedule", s.Name, "error", err)
			return
		}

		id, err := jobsAPI.Submit(ctx, svc, jobCfg)
		if err != nil {
			slog.Error("scheduled submission failed", "schedule", s.Name, "error", err)
			dispatcher.Notify(ctx, notify.Event{
				Type:  "schedule.failed",
				Title: fmt.Sprintf("Schedule %q failed to submit", s.Name),
				Body:  err.Error(),
				Kind:  s.Kind,
			})
			return
		}
		slog.Info("scheduled submission", "schedule", s.Name, "kind", s.Kind, "job", id)

		target := ""
		if len(svc.Required) > 0 {
			target, _ = jobCfg[svc.Required[0]].(string)
		}
		if err := journal.RecordSubmission(ctx, db, id, s.Kind, target, jobCfg); err != nil {
			slog.Warn("scheduled submission not journaled", "error", err)
		}
	}), nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	jobCfg, err := parseSetFlags(scheduleSet)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(jobCfg)
	if err != nil {
		return fmt.Errorf("encoding job config: %w", err)
	}

	s, err := newScheduler(db)
	if err != nil {
		return err
	}
	id, err := s.Add(ctx, journal.Schedule{
		Name:       scheduleName,
		Expr:       scheduleExpr,
		Kind:       scheduleKind,
		ConfigJSON: string(raw),
		Enabled:    true,
	})
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Added schedule %d (%s)", id, scheduleName)))
	fmt.Println(dimStyle.Render("Schedules fire while 'cstk schedule daemon' is running."))
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	scheds, err := journal.ListSchedules(ctx, db, false)
	if err != nil {
		return err
	}

	if scheduleOutput != "table" {
		return renderStructured(scheduleOutput, scheds)
	}

	if len(scheds) == 0 {
		fmt.Println(dimStyle.Render("No schedules. Add one with: cstk schedule add"))
		return nil
	}
	fmt.Printf("%-4s %-18s %-14s %-20s %-8s %s\n", "ID", "NAME", "EXPR", "KIND", "ENABLED", "LAST RUN")
	for _, s := range scheds {
		lastRun := "never"
		if s.LastRunAt != nil {
			lastRun = *s.LastRunAt
		}
		fmt.Printf("%-4d %-18s %-14s %-20s %-8t %s\n", s.ID, s.Name, s.Expr, s.Kind, s.Enabled, lastRun)
	}
	return nil
}

func runScheduleDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q", args[0])
	}
	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := journal.DeleteSchedule(ctx, db, id); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Deleted schedule %d", id)))
	return nil
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q", args[0])
	}
	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := newScheduler(db)
	if err != nil {
		return err
	}
	return s.TriggerNow(ctx, id)
}

func setScheduleEnabled(rawID string, enabled bool) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid schedule id %q", rawID)
	}
	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := journal.SetScheduleEnabled(ctx, db, id, enabled); err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Schedule %d %s", id, state)))
	return nil
}

func runScheduleDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfigOnly()
	if err != nil {
		return err
	}
	db, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := newScheduler(db)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Stop()

	fmt.Println(headerStyle.Render("Schedule daemon running — Ctrl-C to stop"))
	<-ctx.Done()
	fmt.Println(dimStyle.Render("Stopping..."))
	return nil
}
