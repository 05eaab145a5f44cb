package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var noPrune bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create one backup archive and prune old ones",
		Long: `Create one backup archive in the output directory, then delete all but
the newest archives.

Examples:
  # Back up with the built-in defaults
  config-archiver run

  # Back up without touching older archives
  config-archiver run --no-prune`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, opts, noPrune)
		},
	}

	cmd.Flags().BoolVar(&noPrune, "no-prune", false, "skip retention after the backup")
	return cmd
}

func runBackup(cmd *cobra.Command, opts *globalOptions, noPrune bool) error {
	a, err := newApp(opts, cmd.OutOrStdout(), noPrune)
	if err != nil {
		return err
	}
	defer a.Close()

	// an interrupted run removes its partial archive before exiting
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := a.archiver.Run(ctx)
	a.writeMetrics()
	if err != nil {
		a.log.Error("Backup failed", "error", err)
		return err
	}

	a.log.Info("Backup completed successfully",
		"archive", res.Archive.Path,
		"entries", len(res.Entries),
		"issues", len(res.Issues))
	return nil
}
