// Package app builds fleetctl's cobra command tree: an operator-facing
// REST client over fleet-cloud's API, tables rendered with
// gosuri/uitable the way the teacher's own CLI output helpers do.
package app

import (
	"github.com/spf13/cobra"

	"github.com/zeroclaw/fleetctl/cmd/fleetctl/client"
)

// NewRootCommand builds the fleetctl root command and every subcommand.
func NewRootCommand() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "fleetctl operates a fleet-cloud instance from the command line.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8443", "Base URL of the fleet-cloud REST API.")

	newClient := func() *client.Client { return client.New(addr) }

	root.AddCommand(
		newDevicesCommand(newClient),
		newCommandsCommand(newClient),
		newShadowsCommand(newClient),
		newTelemetryCommand(newClient),
	)
	return root
}
