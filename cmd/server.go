package cmd

import (
	"github.com/spf13/cobra"

	"session-gateway/config"
	gatewayServer "session-gateway/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start http gateway",
		Run: func(cmd *cobra.Command, args []string) {
			gatewayServer.RunHttp(config)
		},
	}
}
