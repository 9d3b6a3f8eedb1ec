// Command fleet-cloud runs the cloud side of the fleet command-and-control
// platform: the MQTT bridge, the shared service layer and the REST API.
package main

import (
	"fmt"
	"os"

	"github.com/zeroclaw/fleetctl/cmd/fleet-cloud/app"
	"github.com/zeroclaw/fleetctl/pkg/exitcode"
)

func main() {
	err := app.NewApp().Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitcode.From(err))
}
