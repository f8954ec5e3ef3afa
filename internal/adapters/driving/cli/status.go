package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	statusJSON   bool
	statusRecent int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pipeline status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	statusCmd.Flags().IntVar(&statusRecent, "recent", 10, "number of recent files to list")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	manager, stop, err := startManager(ctx, false)
	if err != nil {
		return err
	}
	defer stop()

	status, err := manager.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	cmd.Printf("State:      %s\n", status.State)
	cmd.Printf("Chunks:     %d\n", status.DocumentCount)
	cmd.Printf("Model:      %s (%d dimensions)\n", status.Model, status.Dimensions)
	cmd.Printf("Queue:      %d\n", status.QueueLength)
	if status.WatchFolder != "" {
		cmd.Printf("Folder:     %s\n", status.WatchFolder)
	}
	if status.ModelMismatch {
		cmd.Println()
		cmd.Println("Warning: the store was built with a different embedding model.")
		cmd.Println("Run 'docrag clear' and ingest the documents again.")
	}

	recent := status.RecentFiles
	if statusRecent >= 0 && len(recent) > statusRecent {
		recent = recent[:statusRecent]
	}
	if len(recent) > 0 {
		cmd.Println()
		cmd.Println("Recent files:")
		for _, f := range recent {
			line := fmt.Sprintf("  %-8s %s (%d chunks)", f.State, filepath.Base(f.Path), f.Chunks)
			if f.Error != "" {
				line += ": " + f.Error
			}
			cmd.Println(line)
		}
	}
	return nil
}
