package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docrag/internal/adapters/driving/tui"
	"github.com/custodia-labs/docrag/internal/logger"
)

// errNotTerminal is returned when the TUI is started without a terminal.
var errNotTerminal = errors.New("the TUI needs an interactive terminal; use 'docrag ask' instead")

// isTerminal reports whether stdout is a terminal. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var tuiTopK int

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docrag.

Ask questions, read answers with their sources and follow ingestion
progress in a status bar refreshed every few seconds.

Controls:
  Enter    - Ask / Select
  n        - New question
  ↑/k, ↓/j - Navigate
  Esc      - Back
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = configured default)")
	tuiCmd.Flags().Bool("watch", true, "also watch the document folder")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	if !isTerminal() {
		return errNotTerminal
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}
	if watch {
		watch = watchFolderConfigured()
	}

	// Log lines would corrupt the alternate screen.
	previous := logger.Output()
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(previous)

	ctx := commandContext(cmd)
	manager, stop, err := startManager(ctx, watch)
	if err != nil {
		return err
	}
	defer stop()

	ports := tui.NewPorts(manager)
	ports.TopK = tuiTopK

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// watchFolderConfigured reports whether a watch folder is set.
func watchFolderConfigured() bool {
	svc, err := settingsService()
	if err != nil {
		return false
	}
	settings, err := svc.Get()
	return err == nil && settings.Watch.Folder != ""
}
