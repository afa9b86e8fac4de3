// Package cli wires the quizwire command line: `serve` runs the trivia
// server, `play` runs the interactive client.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quizwire",
		Short: "LAN multiplayer trivia quiz",
		Long: `quizwire is a LAN multiplayer trivia game.

Run a server with 'quizwire serve <port>' and join it from other terminals
with 'quizwire play <port>'.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPlayCmd())

	return rootCmd
}

// Execute runs the CLI and exits non-zero on any failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
