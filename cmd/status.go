package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/jobs"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check which backend services are reachable",
	Long: `Queries the health endpoint of every backend service and prints an
availability overview. A service that cannot be reached is reported, not
fatal: the remaining services are still checked.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusOutput, "output", "table", "Output format: table|json|yaml")
}

type serviceReport struct {
	Kind        string         `json:"kind" yaml:"kind"`
	Label       string         `json:"label" yaml:"label"`
	Operational bool           `json:"operational" yaml:"operational"`
	Counters    map[string]int `json:"counters,omitempty" yaml:"counters,omitempty"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, client, err := loadClient()
	if err != nil {
		return err
	}
	jobsAPI := jobs.NewAPI(client)

	reports := make([]serviceReport, 0, len(jobs.Services()))
	for _, svc := range jobs.Services() {
		r := serviceReport{Kind: string(svc.Kind), Label: svc.Label}
		st, err := jobsAPI.ServiceHealth(ctx, svc)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Operational = st.Operational
			r.Counters = st.Counters
		}
		reports = append(reports, r)
	}

	if statusOutput != "table" {
		return renderStructured(statusOutput, reports)
	}

	fmt.Println(headerStyle.Render("Backend: " + cfg.Backend.URL))
	for _, r := range reports {
		switch {
		case r.Error != "":
			fmt.Printf("  %-22s %s\n", r.Label, warnStyle.Render("unreachable: "+r.Error))
		case r.Operational:
			fmt.Printf("  %-22s %s\n", r.Label, successStyle.Render("operational"))
		default:
			fmt.Printf("  %-22s %s\n", r.Label, warnStyle.Render("degraded"))
		}
	}
	return nil
}
