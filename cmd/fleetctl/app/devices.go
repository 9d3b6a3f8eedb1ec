package app

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/zeroclaw/fleetctl/cmd/fleetctl/client"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

func newDevicesCommand(newClient func() *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect and provision fleet devices.",
	}
	cmd.AddCommand(
		newDevicesListCommand(newClient),
		newDevicesGetCommand(newClient),
		newDevicesProvisionCommand(newClient),
	)
	return cmd
}

func newDevicesListCommand(newClient func() *client.Client) *cobra.Command {
	var fleetID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices, optionally filtered to one fleet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := newClient().ListDevices(cmd.Context(), fleetID)
			if err != nil {
				return err
			}
			printDevicesTable(devices)
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet-id", "", "Restrict the listing to one fleet.")
	return cmd
}

func newDevicesGetCommand(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <device-id>",
		Short: "Show one device.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newClient().GetDevice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDevicesTable([]protocol.DeviceRecord{d})
			return nil
		},
	}
}

func newDevicesProvisionCommand(newClient func() *client.Client) *cobra.Command {
	var fleetID, hardwareType, vin string
	cmd := &cobra.Command{
		Use:   "provision <device-id>",
		Short: "Register a new device with the fleet.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newClient().ProvisionDevice(cmd.Context(), protocol.DeviceRecord{
				DeviceID:     args[0],
				FleetID:      fleetID,
				HardwareType: protocol.HardwareType(hardwareType),
				VIN:          vin,
			})
			if err != nil {
				return err
			}
			printDevicesTable([]protocol.DeviceRecord{d})
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet-id", "", "Fleet this device belongs to.")
	cmd.Flags().StringVar(&hardwareType, "hardware-type", string(protocol.HardwareRaspberryPi4), "Device hardware platform.")
	cmd.Flags().StringVar(&vin, "vin", "", "Vehicle identification number, if known.")
	cmd.MarkFlagRequired("fleet-id")
	return cmd
}

func printDevicesTable(devices []protocol.DeviceRecord) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("DEVICE ID", "FLEET", "STATUS", "HARDWARE", "LAST HEARTBEAT")
	for _, d := range devices {
		lastHeartbeat := "never"
		if d.LastHeartbeat != nil {
			lastHeartbeat = d.LastHeartbeat.Format("2006-01-02T15:04:05Z")
		}
		table.AddRow(d.DeviceID, d.FleetID, d.Status, d.HardwareType, lastHeartbeat)
	}
	fmt.Println(table)
}
