package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/jobs"
)

var (
	jobsKind       string
	jobsSearch     string
	jobsStatus     string
	jobsPage       int
	jobsPageSize   int
	jobsListOutput string
	jobsShowOutput string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List, inspect, and delete backend jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs of a kind, filtered and paginated",
	Long: `Lists one page of jobs from the backend.

Examples:
  cstk jobs list --kind port_scan
  cstk jobs list --kind vulnerability_scan --status running
  cstk jobs list --kind contract_audit --search 0xdead --page 2 --output json`,
	RunE: runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <kind> <job-id>",
	Short: "Show one job record",
	Args:  cobra.ExactArgs(2),
	RunE:  runJobsShow,
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <kind> <job-id>",
	Short: "Delete a job from the backend",
	Args:  cobra.ExactArgs(2),
	RunE:  runJobsDelete,
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsKind, "kind", "port_scan", "Job kind to list")
	jobsListCmd.Flags().StringVar(&jobsSearch, "search", "", "Free-text search filter")
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "Status filter (running, completed, failed, ...)")
	jobsListCmd.Flags().IntVar(&jobsPage, "page", 1, "Page number")
	jobsListCmd.Flags().IntVar(&jobsPageSize, "page-size", 0, "Page size (default from config)")
	jobsListCmd.Flags().StringVar(&jobsListOutput, "output", "table", "Output format: table|json|yaml")

	jobsShowCmd.Flags().StringVar(&jobsShowOutput, "output", "json", "Output format: json|yaml")

	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd, jobsDeleteCmd)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, client, err := loadClient()
	if err != nil {
		return err
	}
	kind, err := jobs.ParseKind(jobsKind)
	if err != nil {
		return err
	}
	svc, err := jobs.ServiceFor(kind)
	if err != nil {
		return err
	}

	pageSize := jobsPageSize
	if pageSize <= 0 {
		pageSize = cfg.List.PageSize
	}

	page, err := jobs.NewAPI(client).List(ctx, svc, jobs.ListQuery{
		Search:   jobsSearch,
		Status:   jobsStatus,
		Page:     jobsPage,
		PageSize: pageSize,
	})
	if err != nil {
		return err
	}

	if jobsListOutput != "table" {
		return renderStructured(jobsListOutput, page)
	}

	if len(page.Items) == 0 {
		fmt.Println(dimStyle.Render("No jobs match the current filter."))
		return nil
	}
	fmt.Printf("%-16s %-30s %-12s %-9s %s\n", "ID", "TARGET", "STATUS", "PROGRESS", "CREATED")
	for _, j := range page.Items {
		progress := ""
		if j.Progress > 0 {
			progress = fmt.Sprintf("%d%%", j.Progress)
		}
		fmt.Printf("%-16s %-30s %-12s %-9s %s\n", j.ID, j.Target, j.Status, progress, j.CreatedAt)
	}
	if page.TotalPages > 1 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("page %d/%d (%d total)", page.Page, page.TotalPages, page.Total)))
	}
	return nil
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, client, err := loadClient()
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

	job, err := jobs.NewAPI(client).Get(ctx, svc, args[1])
	if err != nil {
		return err
	}
	return renderStructured(jobsShowOutput, job)
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, client, err := loadClient()
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

	if err := jobs.NewAPI(client).Delete(ctx, svc, args[1]); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Deleted %s %s", svc.Kind, args[1])))
	return nil
}
