// Command flood-memory is a persistent memory graph for agents, served over
// MCP (stdio or HTTP) and usable directly from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flood-ai/flood-memory/internal/server/tools"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flood-memory",
		Short: "Persistent memory graph for agents",
		Long: `flood-memory stores short text memories as nodes in a linked graph,
with full-text recall, tag filters and breadth-first traversal.

Run "serve" for the MCP stdio transport, "serve-http" for MCP over HTTP
plus the REST API, or use the node commands directly.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", os.Getenv("FLOOD_MEMORY_CONFIG"), "Path to a YAML config file")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", tools.ServerName, tools.ServerVersion)
		},
	})

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newServeHTTPCmd())
	addNodeCommands(rootCmd)

	return rootCmd
}
