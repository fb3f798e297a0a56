package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var snapshot bool

	cmd := &cobra.Command{
		Use:   "load <uri>",
		Short: "Load an inventory and print its statistics",
		Long: `Load the inventory into a warehouse, stopping at the first failing line.
With --snapshot the loaded warehouse is persisted to the configured database,
unless a snapshot of identical content was already stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context(), cmd, snapshot)
			if err != nil {
				return err
			}
			defer s.Close()

			report, err := s.components.Service.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return s.out.emit(report, func(w io.Writer) {
				fmt.Fprintf(w, "source\t%s\n", report.Source)
				fmt.Fprintf(w, "digest\t%s\n", report.Digest)
				fmt.Fprintf(w, "records\t%d\n", report.Result.Records)
				writeStats(w, report.Stats)
				fmt.Fprintf(w, "duration\t%s\n", report.Duration)
				switch {
				case report.SnapshotID != nil:
					fmt.Fprintf(w, "snapshot\t%s\n", report.SnapshotID)
				case report.SnapshotSkipped:
					fmt.Fprintf(w, "snapshot\talready stored\n")
				case report.SnapshotError != "":
					fmt.Fprintf(w, "snapshot\tfailed: %s\n", report.SnapshotError)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "persist the loaded warehouse")
	return cmd
}
