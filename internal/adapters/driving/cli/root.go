// Package cli provides the cobra command tree of docrag.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Runtime builds the services commands drive. It is created once the
// global flags are parsed.
type Runtime interface {
	// Settings returns the settings service.
	Settings() (driving.SettingsService, error)

	// Manager builds a pipeline manager from the current settings. The
	// manager is not started.
	Manager() (driving.Manager, error)
}

// RuntimeFactory creates the runtime for a configuration directory. An
// empty directory selects the default.
type RuntimeFactory func(configDir string) (Runtime, error)

var (
	newRuntime RuntimeFactory
	rt         Runtime
)

// errNoRuntime is returned when main did not provide a runtime factory.
var errNoRuntime = errors.New("runtime not configured")

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Answer questions from a folder of documents",
	Long: `docrag watches a folder of PDF and text documents, indexes them into a
local vector store and answers questions grounded in their content.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.docrag)")
}

// SetRuntimeFactory sets the factory building the runtime.
func SetRuntimeFactory(f RuntimeFactory) {
	newRuntime = f
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	return nil
}

// runtime returns the runtime, creating it on first use so commands
// such as version work without a valid configuration.
func runtime() (Runtime, error) {
	if rt != nil {
		return rt, nil
	}
	if newRuntime == nil {
		return nil, errNoRuntime
	}
	r, err := newRuntime(configDir)
	if err != nil {
		return nil, fmt.Errorf("initialise: %w", err)
	}
	rt = r
	return rt, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// shutdown signals by main.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func settingsService() (driving.SettingsService, error) {
	r, err := runtime()
	if err != nil {
		return nil, err
	}
	return r.Settings()
}

// startManager builds and starts a manager. The returned stop function
// must be called once the command is done.
func startManager(ctx context.Context, watch bool) (driving.Manager, func(), error) {
	m, stop, err := buildManager()
	if err != nil {
		return nil, nil, err
	}
	if err := m.Start(ctx, watch); err != nil {
		_ = m.Stop()
		return nil, nil, fmt.Errorf("start pipeline: %w", err)
	}
	return m, stop, nil
}

// buildManager builds a manager without starting it.
func buildManager() (driving.Manager, func(), error) {
	r, err := runtime()
	if err != nil {
		return nil, nil, err
	}
	m, err := r.Manager()
	if err != nil {
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	stop := func() {
		if err := m.Stop(); err != nil {
			logger.Warn("stop pipeline: %v", err)
		}
	}
	return m, stop, nil
}

// commandContext returns the command context, falling back to Background
// when the command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
