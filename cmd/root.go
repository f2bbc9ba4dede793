package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cstk",
	Short: "Command-line client for the CyberSec Toolkit Pro backend",
	Long: `cstk submits security jobs (port scans, vulnerability scans, contract
audits, model evaluations, playbook executions, phishing campaigns) to a
CyberSec Toolkit Pro backend, watches them to completion, and renders their
results.

Get started:
  cstk status      Check which backend services are reachable
  cstk submit      Submit a job (interactive when flags are omitted)
  cstk watch       Follow a running job to its terminal state
  cstk jobs        List, inspect, and delete jobs
  cstk report      Export a job report to a local file
  cstk ui          Launch the terminal UI`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.cstk/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		submitCmd,
		watchCmd,
		jobsCmd,
		statusCmd,
		reportCmd,
		scheduleCmd,
		historyCmd,
		uiCmd,
		configCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}
