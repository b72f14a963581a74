// Package sync provides the sync command implementation.
package sync

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/application"
)

// Flags holds the sync command flags.
type Flags struct {
	DryRun    bool
	FailFast  bool
	NoReport  bool
	Timeout   time.Duration
	ReportDir string
}

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Synchronize scraped listings into the remote store",
		Args:    cobra.NoArgs,
		Long: `Sync collects every child and sibling group from the configured source and
upserts them into the remote store.

The command will:
• Fetch the canonical picklist labels from the store
• Collect persons and groups from the source
• Create missing records and update changed ones
• Resolve caseworker contacts and upload new attachments
• Write a change report of everything added or updated

Entities that fail are reported and skipped unless --fail-fast is set.`,
		Example: `  casesync sync                         # Run against the configured store
  casesync sync --dry-run               # Record writes without performing them
  casesync sync --fail-fast             # Stop at the first failing entity
  casesync sync --report-dir reports    # Write the change report into reports/
  casesync sync -o wide                 # List every entity`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags, changed(cmd), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "record writes without performing them")
	cmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "stop at the first entity that fails")
	cmd.Flags().BoolVar(&flags.NoReport, "no-report", false, "do not write a change report")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "ceiling for the whole run (default from config)")
	cmd.Flags().StringVar(&flags.ReportDir, "report-dir", "", "directory of the change report (default from config)")

	return cmd
}

func changed(cmd *cobra.Command) map[string]bool {
	out := map[string]bool{}
	for _, name := range []string{"dry-run", "fail-fast", "no-report", "timeout", "report-dir"} {
		out[name] = cmd.Flags().Changed(name)
	}
	return out
}
