package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"courier/internal/ipc"
	"courier/internal/logging"
	"courier/internal/notifications"
	"courier/internal/queue"
	"courier/internal/scanner"
	"courier/internal/services/shotgrid"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the tracker for deliverable shots and queue them",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			// Prefer the daemon so queued shots start processing right away.
			if client, err := ipc.Dial(ctx.socketPath()); err == nil {
				defer client.Close()
				resp, err := client.Scan()
				if err != nil {
					return err
				}
				reportScanResult(stdout, resp.Queued)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			tracker, err := shotgrid.New(cfg)
			if err != nil {
				return err
			}

			sc := scanner.NewScanner(cfg, store, logging.NewNop(), tracker, notifications.NewService(cfg))
			queued, err := sc.ScanOnce(cmd.Context())
			if err != nil {
				return err
			}
			reportScanResult(stdout, queued)
			fmt.Fprintln(stdout, "Daemon is not running; queued shots will process once it starts")
			return nil
		},
	}
}

func reportScanResult(stdout io.Writer, queued int) {
	switch queued {
	case 0:
		fmt.Fprintln(stdout, "No new shots to queue")
	case 1:
		fmt.Fprintln(stdout, "Queued 1 shot for delivery")
	default:
		fmt.Fprintf(stdout, "Queued %d shots for delivery\n", queued)
	}
}
