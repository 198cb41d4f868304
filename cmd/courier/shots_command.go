package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"courier/internal/services/shotgrid"
)

func newShotsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shots",
		Short: "List shots waiting for delivery in the tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := shotgrid.New(cfg)
			if err != nil {
				return err
			}

			shots, err := client.ShotsByStatus(cmd.Context(), cfg.Tracker.DeliveryStatus)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(shots) == 0 {
				fmt.Fprintf(stdout, "No shots in status %q\n", cfg.Tracker.DeliveryStatus)
				return nil
			}

			rows := make([][]string, 0, len(shots))
			for _, shot := range shots {
				rows = append(rows, []string{
					strconv.FormatInt(shot.ID, 10),
					shot.Code,
					shot.SequenceName,
					formatStatusLabel(shot.Status),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"ID", "Shot", "Sequence", "Status"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
