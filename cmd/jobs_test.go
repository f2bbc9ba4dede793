package cmd

import "testing"

// Each jobs subcommand owns its --output flag. A shared variable would let
// the last registration's default win for both commands.
func TestJobsOutputDefaultsAreIndependent(t *testing.T) {
	if got := jobsListCmd.Flags().Lookup("output").Value.String(); got != "table" {
		t.Errorf("jobs list --output default = %q, want table", got)
	}
	if got := jobsShowCmd.Flags().Lookup("output").Value.String(); got != "json" {
		t.Errorf("jobs show --output default = %q, want json", got)
	}
}
