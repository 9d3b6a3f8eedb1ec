// Command fleet-agent runs the edge side of the fleet command-and-control
// platform on one device: command execution, heartbeats, and shadow sync.
package main

import (
	"fmt"
	"os"

	"github.com/zeroclaw/fleetctl/cmd/fleet-agent/app"
	"github.com/zeroclaw/fleetctl/pkg/exitcode"
)

func main() {
	err := app.NewApp().Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitcode.From(err))
}
