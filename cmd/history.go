package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/journal"
)

var (
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show jobs submitted from this machine",
	Long: `Lists recent submissions from the local journal, newest first. The
journal is written on submit and updated when a watch observes the job's
terminal state, so it reflects what this client saw rather than the
backend's full job listing.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries to show")
	historyCmd.Flags().StringVar(&historyOutput, "output", "table", "Output format: table|json|yaml")
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	subs, err := journal.History(ctx, db, historyLimit)
	if err != nil {
		return err
	}

	if historyOutput != "table" {
		return renderStructured(historyOutput, subs)
	}

	if len(subs) == 0 {
		fmt.Println(dimStyle.Render("No submissions journaled yet. Submit one with: cstk submit"))
		return nil
	}
	fmt.Printf("%-16s %-20s %-24s %-11s %s\n", "JOB", "KIND", "TARGET", "STATUS", "SUBMITTED")
	for _, s := range subs {
		fmt.Printf("%-16s %-20s %-24s %-11s %s\n", s.JobID, s.Kind, s.Target, s.Status, s.SubmittedAt)
	}
	return nil
}
