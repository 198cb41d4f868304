package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
)

func newOpenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open [id]",
		Short: "Open a delivery directory in the file manager",
		Long:  "Open the delivery directory for a queue item, or the delivery root when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveOpenTarget(cmd, ctx, args)
			if err != nil {
				return err
			}
			if target == "" {
				return nil
			}
			if _, err := os.Stat(target); err != nil {
				return fmt.Errorf("open %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", target)
			return openPath(target)
		},
	}
}

func resolveOpenTarget(cmd *cobra.Command, ctx *commandContext, args []string) (string, error) {
	if len(args) == 0 {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return "", err
		}
		return cfg.DefaultRootPath(), nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("invalid queue item id %q", args[0])
	}

	var target string
	err = ctx.withQueue(func(api queueAPI) error {
		item, err := api.Describe(cmd.Context(), id)
		if err != nil {
			return err
		}
		if item == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Queue item %d not found\n", id)
			return nil
		}
		if item.DeliveryPath == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Queue item %d has no delivery path yet\n", id)
			return nil
		}
		target = item.DeliveryPath
		return nil
	})
	return target, err
}

func openPath(path string) error {
	var opener string
	switch runtime.GOOS {
	case "darwin":
		opener = "open"
	default:
		opener = "xdg-open"
	}
	openCmd := exec.Command(opener, path)
	if err := openCmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", opener, err)
	}
	return openCmd.Process.Release()
}
