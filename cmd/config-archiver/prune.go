package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd(opts *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest archives",
		Long: `Apply the retention window to the output directory without creating a
new archive. With --dry-run nothing is deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			apply := a.pruner.Apply
			verb := "deleted"
			if dryRun {
				apply = a.pruner.Plan
				verb = "would delete"
			}

			res, err := apply(cmd.Context())
			a.writeMetrics()
			out := cmd.OutOrStdout()
			for _, arc := range res.Deleted {
				fmt.Fprintf(out, "%s %s\n", verb, arc.Name)
			}
			fmt.Fprintf(out, "kept %d archive(s)\n", len(res.Kept))
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted")
	return cmd
}
