package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notesync/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can read
synchronised documents, chunks and relationships, and trigger a sync.

By default the server communicates over stdio using JSON-RPC. Use --http to
serve the streamable HTTP transport instead, for example to test with the
MCP Inspector.

Examples:
  # Stdio mode (default, for desktop assistants)
  notesync mcp

  # HTTP mode
  notesync mcp --http localhost:8080

Assistant configuration:
  {
    "mcpServers": {
      "notesync": {
        "command": "/path/to/notesync",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if syncService == nil || documentService == nil {
		return errors.New("services not configured")
	}

	ports := &mcp.Ports{
		Sync:     syncService,
		Document: documentService,
		Lock: func() (func(), error) {
			lock, err := acquireSyncLock(dataDir)
			if err != nil {
				return nil, err
			}
			return func() { _ = lock.Unlock() }, nil
		},
	}

	server, err := mcp.NewServer(ports, version)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
