package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/rollcall/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the directory as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		// stdout carries the protocol; logs stay on stderr.
		a.preload(cmd.Context())
		return mcpserver.New(a.catalog, version, a.log).ServeStdio()
	},
}
