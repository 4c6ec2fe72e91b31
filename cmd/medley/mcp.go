package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Chuabacca/Medley-AI/internal/cli"
	"github.com/Chuabacca/Medley-AI/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes consultations as MCP tools, so an agent can conduct an intake.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Stop()
		cmd.SetContext(sc)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Logs go to stderr as JSON so they never corrupt JSON-RPC on stdout.
		app, cleanup, err := openApp(cmd, cfg, cli.LogServer)
		if err != nil {
			return err
		}
		defer cleanup()
		logger := app.Logger

		srv := mcp.NewServer(app.Manager, app.Schema(), version(), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting Medley MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			logger.Info("Starting Medley MCP Server (SSE)", "address", addr, "base_url", baseURL)
			if err := srv.ServeSSE(sc, addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP server failed: %w", err)
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public URL announced to SSE clients (default http://localhost<addr>)")
}
