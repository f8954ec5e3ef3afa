package cli

import (
	"bufio"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/logger"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every indexed chunk",
	Long: `Deletes all pages of the vector store. Source documents are not
touched; run 'docrag watch' or 'docrag ingest' to index them again.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearYes {
		cmd.Print("Remove every indexed chunk? [y/N]: ")
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			return errors.New("aborted")
		}
	}

	ctx := commandContext(cmd)
	manager, stop, err := buildManager()
	if err != nil {
		return err
	}
	defer stop()

	// A store that no longer opens can still be cleared.
	if err := manager.Start(ctx, false); err != nil {
		logger.Warn("start pipeline: %v", err)
	}

	if err := manager.Clear(ctx); err != nil {
		return err
	}
	cmd.Println("Store cleared.")
	return nil
}
