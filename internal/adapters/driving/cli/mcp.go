package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the "answer" and
"status" tools to MCP-compatible assistants.

By default the server speaks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead, for example to test with MCP Inspector.

Examples:
  # Stdio mode (default)
  docrag mcp serve

  # HTTP mode
  docrag mcp serve --port 8081

Assistant configuration:
  {
    "mcpServers": {
      "docrag": {
        "command": "/path/to/docrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("watch", false, "also watch the document folder")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	ctx := commandContext(cmd)
	manager, stop, err := startManager(ctx, watch)
	if err != nil {
		return err
	}
	defer stop()

	server, err := mcp.NewServer(&mcp.Ports{Manager: manager})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		// Stdout carries the protocol in stdio mode only.
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
