package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the document folder and index new files",
	Long: `Indexes every matching file already in the watch folder, then keeps
watching it and indexes files as they are added or changed.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	manager, stop, err := startManager(ctx, true)
	if err != nil {
		return err
	}
	defer stop()

	if status, err := manager.Status(ctx); err == nil {
		cmd.Printf("Watching %s (%d chunks indexed). Press Ctrl+C to stop.\n", status.WatchFolder, status.DocumentCount)
	}

	if err := manager.Wait(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
