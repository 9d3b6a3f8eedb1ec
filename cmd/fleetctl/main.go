// Command fleetctl is an operator-facing CLI client for a running
// fleet-cloud instance's REST API.
package main

import (
	"fmt"
	"os"

	"github.com/zeroclaw/fleetctl/cmd/fleetctl/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
