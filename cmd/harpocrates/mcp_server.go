package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/internal/mcp"
)

var mcpAllowMasked bool

func init() {
	rootCmd.AddCommand(mcpServerCmd)

	mcpServerCmd.Flags().BoolVar(&mcpAllowMasked, "allow-masked", false, "Enable entry_get_masked (also mcp.allow_masked in config)")
}

// mcpServerCmd starts the MCP server for AI coding assistant integration
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server for AI coding assistant integration",
	Long: `Start the MCP server that gives AI coding assistants read-only access to
vault metadata.

The server implements the Model Context Protocol (MCP) over stdio transport.
Plaintext passwords are never returned.

Available tools:
  - entry_list:       List entries (id, title, username, url), optionally filtered
  - entry_get_masked: Masked password with length and strength (opt-in)
  - audit_list:       List audit log events
  - audit_verify:     Verify the audit log hash chain
  - security_score:   Vault security score without entry titles

Authentication:
  Set HARPOCRATES_PASSWORD and HARPOCRATES_SECRET_KEY before starting the
  server. Both are read once and immediately cleared from the environment.

  SECURITY NOTE: On Linux, the environment variables may briefly be visible
  via /proc/<pid>/environ before they are cleared.

Example MCP configuration:
  {
    "mcpServers": {
      "harpocrates": {
        "type": "stdio",
        "command": "/path/to/harpocrates",
        "args": ["mcp-server"],
        "env": {
          "HARPOCRATES_PASSWORD": "your-master-password",
          "HARPOCRATES_SECRET_KEY": "your-secret-key"
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func runMCPServer(parent context.Context) error {
	server, err := mcp.NewServer(&mcp.ServerOptions{
		VaultPath:   cfg.VaultPath,
		AllowMasked: mcpAllowMasked || cfg.MCP.AllowMasked,
		FileLock:    cfg.FileLock,
		Logger:      logger,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
			server.Close()
		case <-ctx.Done():
		}
	}()

	logger.Info("MCP server started", "vault", cfg.VaultPath)
	if err := server.Run(ctx); err != nil {
		// Don't report context canceled as an error
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
