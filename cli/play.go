package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quizwire/quizwire/client"
)

func newPlayCmd() *cobra.Command {
	var host string

	cmd := &cobra.Command{
		Use:   "play <port>",
		Short: "Join a trivia server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}
			return client.Run(net.JoinHostPort(host, args[0]))
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Server address")

	return cmd
}
