package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docrag/internal/adapters/driving/mcp"
)

var (
	serveAddr    string
	serveWatch   bool
	serveCORS    []string
	serveMCPPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long: `Starts the HTTP query API and, unless --watch=false, the folder watcher.

Endpoints:
  POST /v1/answer   {"question": "...", "topK": 3}
  GET  /v1/status
  GET  /healthz
  GET  /openapi.json

The MCP server is mounted on the same listener at --mcp-path.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "also watch the document folder")
	serveCmd.Flags().StringSliceVar(&serveCORS, "cors-origin", nil, "allowed CORS origin (repeatable)")
	serveCmd.Flags().StringVar(&serveMCPPath, "mcp-path", "/mcp", "path of the MCP endpoint (empty to disable)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settingsSvc, err := settingsService()
	if err != nil {
		return err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.Server.Addr
	}
	watch := serveWatch && settings.Watch.Folder != ""

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	manager, stop, err := startManager(ctx, watch)
	if err != nil {
		return err
	}
	defer stop()

	server, err := httpapi.New(httpapi.Config{
		ListenAddr:  addr,
		CORSOrigins: serveCORS,
		Version:     version,
	}, manager)
	if err != nil {
		return err
	}

	if serveMCPPath != "" {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Manager: manager})
		if err != nil {
			return err
		}
		server.Mount(serveMCPPath, mcpServer.Handler())
	}

	cmd.Printf("Serving on http://%s (watching: %t)\n", addr, watch)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if watch {
		g.Go(func() error {
			if err := manager.Wait(gctx); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
