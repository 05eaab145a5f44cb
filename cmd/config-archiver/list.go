package main

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives in the output directory, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			archives, err := a.pruner.List()
			if err != nil && !errors.Is(err, iofs.ErrNotExist) {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCREATED\tSIZE")
			for _, arc := range archives {
				created := "-"
				if !arc.Timestamp.IsZero() {
					created = humanize.Time(arc.Timestamp)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", arc.Name, created, humanize.Bytes(uint64(arc.Size)))
			}
			return tw.Flush()
		},
	}
}
