package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Index files now",
	Long: `Extracts, chunks, embeds and stores each file synchronously. Chunks
already in the store are skipped, so ingesting a file twice is harmless.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	manager, stop, err := startManager(ctx, false)
	if err != nil {
		return err
	}
	defer stop()

	failed := 0
	for _, path := range args {
		res, err := manager.IngestFile(ctx, path)
		printIngestResult(cmd, res)
		if err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, res domain.IngestResult) {
	if res.State == domain.FileFailed {
		cmd.Printf("FAILED %s: %s\n", res.Path, res.Error)
		return
	}
	cmd.Printf("OK     %s: %d chunks (%d new, %d already stored)\n", res.Path, res.Chunks, res.New, res.Skipped)
}
