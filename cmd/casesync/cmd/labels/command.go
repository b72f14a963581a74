// Package labels provides the labels command implementation.
package labels

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/casesync/cmd/application"
	"github.com/agentstation/casesync/internal/cmd/output"
)

// NewCommand creates the labels command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "labels [table field]",
		GroupID: "core",
		Short:   "Show the canonical picklist labels of the remote store",
		Long: `Labels lists the active picklist labels the store accepts.

Without arguments every picklist field used by sync is described. With a
table and a field only that picklist is shown.`,
		Example: `  casesync labels
  casesync labels Children__c Child_s_Nationality__c -o json`,
		Args: cobra.MatchAll(
			cobra.RangeArgs(0, 2),
			func(cmd *cobra.Command, args []string) error {
				if len(args) == 1 {
					return cobra.ExactArgs(2)(cmd, args)
				}
				return nil
			},
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))

			if len(args) == 2 {
				st, err := app.Store()
				if err != nil {
					return err
				}
				values, err := st.DescribeLabels(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return formatter.Format(cmd.OutOrStdout(), &output.Labels{Table: args[0], Field: args[1], Labels: values})
			}

			syncer, err := app.Syncer()
			if err != nil {
				return err
			}
			labels, err := syncer.Labels(ctx)
			if err != nil {
				return err
			}
			return formatter.Format(cmd.OutOrStdout(), output.NewLabelSet(labels))
		},
	}
}
