package main

import (
	"fmt"
	"io"

	"github.com/ggc/backend/internal/domain/warehouse"
	"github.com/ggc/backend/internal/infrastructure/persistence"
	"github.com/ggc/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSnapshotsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect persisted warehouse snapshots",
	}
	cmd.AddCommand(newSnapshotsListCmd(opts), newSnapshotsShowCmd(opts))
	return cmd
}

func newSnapshotsListCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			snapshots, err := s.components.Snapshots.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return s.out.emit(snapshots, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tCREATED\tPARTNERS\tPRODUCTS\tBATCHES\tSOURCE")
				for _, snap := range snapshots {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
						snap.ID, formatTime(snap.CreatedAt),
						snap.Partners, snap.SimpleProducts+snap.AggregateProducts, snap.Batches,
						snap.Source)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", persistence.DefaultListLimit, "maximum number of snapshots")
	return cmd
}

type snapshotDetail struct {
	Snapshot *models.SnapshotModel `json:"snapshot"`
	Restored warehouse.Stats       `json:"restored"`
}

// latestSnapshot is accepted by "snapshots show" in place of an id
const latestSnapshot = "latest"

func newSnapshotsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|latest>",
		Short: "Restore a snapshot and print its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uuid.UUID
			if args[0] != latestSnapshot {
				parsed, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
				}
				id = parsed
			}

			s, err := opts.open(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			repo := s.components.Snapshots
			var snap *models.SnapshotModel
			if id == uuid.Nil {
				snap, err = repo.Latest(cmd.Context())
			} else {
				snap, err = repo.FindByID(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			restored, err := repo.Restore(cmd.Context(), snap.ID)
			if err != nil {
				return err
			}

			detail := snapshotDetail{Snapshot: snap, Restored: restored.Stats()}
			return s.out.emit(detail, func(w io.Writer) {
				fmt.Fprintf(w, "id\t%s\n", snap.ID)
				fmt.Fprintf(w, "created\t%s\n", formatTime(snap.CreatedAt))
				fmt.Fprintf(w, "source\t%s\n", snap.Source)
				fmt.Fprintf(w, "digest\t%s\n", snap.Digest)
				writeStats(w, detail.Restored)
			})
		},
	}
}
