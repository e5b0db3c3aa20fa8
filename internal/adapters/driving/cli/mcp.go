package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/bidscribe/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
knowledge base while drafting bid sections.

Tools: search_knowledge, reference_sections, list_groups.
Resources: bidscribe://stats, bidscribe://groups/{name}/documents,
bidscribe://documents/{docId}.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  bidscribe mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  bidscribe mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "bidscribe": {
        "command": "/path/to/bidscribe",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Annotations: needs(NeedKnowledge),
	RunE:        runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Library:   libraryService,
	}

	server, err := mcp.NewServer(ports, version)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(commandContext(cmd), addr)
	}

	return server.Run(commandContext(cmd))
}
