package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/zeroclaw/fleetctl/cmd/fleetctl/client"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// telemetryValue prints whichever of a reading's three value fields is
// populated, matching the "exactly one is set" contract pkg/protocol
// documents for TelemetryReading.
func telemetryValue(r protocol.TelemetryReading) string {
	switch {
	case r.ValueNumeric != nil:
		return fmt.Sprintf("%g%s", *r.ValueNumeric, r.Unit)
	case r.ValueText != "":
		return r.ValueText
	case len(r.ValueJSON) > 0:
		return string(r.ValueJSON)
	default:
		return ""
	}
}

func newTelemetryCommand(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "telemetry <device-id>",
		Short: "List recent telemetry readings for one device.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			readings, err := newClient().ListTelemetry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			table := uitable.New()
			table.MaxColWidth = 60
			table.AddRow("TIME", "SOURCE", "METRIC", "VALUE")
			for _, r := range readings {
				table.AddRow(r.Time, r.Source, r.MetricName, telemetryValue(r))
			}
			fmt.Println(table)
			return nil
		},
	}
}
