package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/config"
	"github.com/cybersectk/cstk/internal/jobs"
	"github.com/cybersectk/cstk/internal/journal"
)

var (
	submitKind  string
	submitSet   []string
	submitWatch bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a job to the backend",
	Long: `Submits a job configuration to the backend service for its kind.
Without --kind, an interactive form walks you through the submission.

Examples:
  cstk submit --kind port_scan --set target=10.0.0.0/24
  cstk submit --kind contract_audit --set contract_address=0xdead... --watch
  cstk submit`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitKind, "kind", "", "Job kind (omit for interactive mode)")
	submitCmd.Flags().StringArrayVar(&submitSet, "set", nil, "Job configuration as key=value (repeatable)")
	submitCmd.Flags().BoolVar(&submitWatch, "watch", false, "Watch the job to completion after submitting")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, client, err := loadClient()
	if err != nil {
		return err
	}

	var svc jobs.Service
	var jobCfg map[string]any
	if submitKind == "" {
		svc, jobCfg, err = promptSubmission()
	} else {
		svc, jobCfg, err = flagSubmission()
	}
	if err != nil {
		return err
	}

	// Local validation happens before any request leaves the machine.
	if err := svc.ValidateConfig(jobCfg); err != nil {
		return err
	}

	jobsAPI := jobs.NewAPI(client)
	id, err := jobsAPI.Submit(ctx, svc, jobCfg)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Submitted %s %s", svc.Kind, id)))

	recordSubmission(ctx, cfg, svc, id, jobCfg)

	if submitWatch {
		return watchJob(ctx, cfg, client, svc, id)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("Follow it with: cstk watch %s %s", svc.Kind, id)))
	return nil
}

// flagSubmission builds the service and config from --kind and --set.
func flagSubmission() (jobs.Service, map[string]any, error) {
	kind, err := jobs.ParseKind(submitKind)
	if err != nil {
		return jobs.Service{}, nil, err
	}
	svc, err := jobs.ServiceFor(kind)
	if err != nil {
		return jobs.Service{}, nil, err
	}
	jobCfg, err := parseSetFlags(submitSet)
	if err != nil {
		return jobs.Service{}, nil, err
	}
	return svc, jobCfg, nil
}

// promptSubmission walks the user through kind selection and the kind's
// required fields.
func promptSubmission() (jobs.Service, map[string]any, error) {
	services := jobs.Services()
	options := make([]huh.Option[string], len(services))
	for i, s := range services {
		options[i] = huh.NewOption(s.Label, string(s.Kind))
	}

	var kindChoice string
	kindForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Job kind").
				Options(options...).
				Value(&kindChoice),
		),
	)
	if err := kindForm.Run(); err != nil {
		return jobs.Service{}, nil, err
	}

	svc, err := jobs.ServiceFor(jobs.Kind(kindChoice))
	if err != nil {
		return jobs.Service{}, nil, err
	}

	values := make([]string, len(svc.Required))
	fields := make([]huh.Field, len(svc.Required))
	for i, name := range svc.Required {
		fields[i] = huh.NewInput().
			Title(name).
			Description("Required by " + svc.Label).
			Value(&values[i])
	}
	var extra string
	fields = append(fields, huh.NewInput().
		Title("Extra options (optional)").
		Description("Space-separated key=value pairs passed through verbatim.").
		Value(&extra))

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return jobs.Service{}, nil, err
	}

	jobCfg := make(map[string]any, len(svc.Required))
	for i, name := range svc.Required {
		jobCfg[name] = values[i]
	}
	if extra != "" {
		extraCfg, err := parseSetFlags(strings.Fields(extra))
		if err != nil {
			return jobs.Service{}, nil, err
		}
		for k, v := range extraCfg {
			jobCfg[k] = v
		}
	}
	return svc, jobCfg, nil
}

// recordSubmission journals the submission; journal problems never fail the
// submit itself.
func recordSubmission(ctx context.Context, cfg *config.Config, svc jobs.Service, id string, jobCfg map[string]any) {
	db, err := openJournal(ctx, cfg)
	if err != nil {
		slog.Warn("submission not journaled", "error", err)
		return
	}
	defer db.Close()

	target := ""
	if len(svc.Required) > 0 {
		target, _ = jobCfg[svc.Required[0]].(string)
	}
	if err := journal.RecordSubmission(ctx, db, id, string(svc.Kind), target, jobCfg); err != nil {
		slog.Warn("submission not journaled", "error", err)
	}
}
