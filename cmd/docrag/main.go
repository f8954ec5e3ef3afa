// Command docrag answers questions from a watched folder of documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/docrag/internal/core/services"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := services.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetRuntimeFactory(func(configDir string) (cli.Runtime, error) {
		r, err := newRuntime(configDir)
		if err != nil {
			return nil, err
		}
		return r, nil
	})

	if err := cli.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
