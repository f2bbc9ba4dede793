package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/reports"
)

var (
	reportFormat string
	reportDir    string
)

var reportCmd = &cobra.Command{
	Use:   "report <kind> <job-id>",
	Short: "Export a job report to a local file",
	Long: `Requests a rendered report from the backend and writes it to the
reports directory. The export is a tracked action: it either produces a
file path or a concrete error, never a silent failure.

Examples:
  cstk report port_scan 1234
  cstk report contract_audit a81f-44c2 --format pdf`,
	Args: cobra.ExactArgs(2),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "json",
		"Report format: "+strings.Join(reports.Formats, "|"))
	reportCmd.Flags().StringVar(&reportDir, "dir", "", "Output directory (default from config)")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	dir := reportDir
	if dir == "" {
		dir = cfg.Reports.Dir
	}

	action := reports.NewAction(client, dir)
	path, err := action.Run(ctx, svc, args[1], reportFormat)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Report written to " + path))
	return nil
}
