package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cybersectk/cstk/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal UI",
	Long:  `Opens the interactive terminal UI: a filterable job listing with live auto-refresh and a detail pane that follows running jobs and renders their results.`,
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, client, err := loadClient()
	if err != nil {
		return err
	}
	app := tui.NewApp(cfg, client)
	return app.Run(context.Background())
}
