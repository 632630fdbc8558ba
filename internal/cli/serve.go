package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/entrypoint"
)

func newServeCommand(cfg func() *config.Config, version string) *cobra.Command {
	var port int32
	var host string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg()
			if cmd.Flags().Changed("port") {
				c.HTTP.Port = port
			}
			if cmd.Flags().Changed("host") {
				c.HTTP.Host = host
			}
			return entrypoint.Run(c, version)
		},
	}
	cmd.Flags().Int32Var(&port, "port", 8080, "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Address to bind (overrides HOST)")
	return cmd
}
