package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the chunks most similar to the question and asks the
generation backend for an answer grounded in them. Arguments are joined
into a single question, so quoting is optional.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = configured default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askTopK < 0 {
		return errors.New("--top-k must not be negative")
	}
	ctx := commandContext(cmd)

	manager, stop, err := startManager(ctx, false)
	if err != nil {
		return err
	}
	defer stop()

	answer := manager.Answer(ctx, strings.Join(args, " "), askTopK)

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		printAnswer(cmd, answer)
	}

	if answer.Failed() {
		return fmt.Errorf("answer failed: %s", answer.Error)
	}
	return nil
}

func printAnswer(cmd *cobra.Command, answer domain.Answer) {
	cmd.Println(answer.Text)
	if len(answer.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Printf("Sources (confidence %.2f):\n", answer.Confidence)
	for i, src := range answer.Sources {
		cmd.Printf("  [%d] %s, chunk %d (%.2f)\n", i+1, src.Source, src.ChunkIndex, src.Confidence)
	}
}
