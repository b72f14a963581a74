// Package purge provides the purge command implementation.
package purge

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/cmd/output"
	"github.com/agentstation/casesync/pkg/records"
)

// NewCommand creates the purge command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:       "purge <person|group|contact|attachment|all>...",
		GroupID:   "management",
		Short:     "Delete every record of the given kinds from the remote store",
		ValidArgs: []string{"person", "group", "contact", "attachment", "all"},
		Args:      cobra.MatchAll(cobra.MinimumNArgs(1), cobra.OnlyValidArgs),
		Long: `Purge empties remote tables. It is meant for test environments.

"all" purges groups, persons, contacts and attachments in that order. Each
table reports completed, timed_out or failed.`,
		Example: `  casesync purge person --yes
  casesync purge all --yes -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := ParseKinds(args)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to purge %s without --yes", strings.Join(args, ", "))
			}

			syncer, err := app.Syncer()
			if err != nil {
				return err
			}
			outcomes, purgeErr := syncer.Purge(cmd.Context(), kinds...)
			if len(outcomes) > 0 {
				formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
				if err := formatter.Format(cmd.OutOrStdout(), output.NewPurge(outcomes)); err != nil {
					return err
				}
			}
			return purgeErr
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}

// ParseKinds converts arguments to record kinds. "all" yields nil, which
// purges every kind.
func ParseKinds(args []string) ([]records.Kind, error) {
	var kinds []records.Kind
	for _, arg := range args {
		if arg == "all" {
			return nil, nil
		}
		kind, err := records.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
