package app

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/zeroclaw/fleetctl/cmd/fleetctl/client"
)

func newCommandsCommand(newClient func() *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Submit and inspect operator commands.",
	}
	cmd.AddCommand(
		newCommandsSubmitCommand(newClient),
		newCommandsListCommand(newClient),
		newCommandsGetCommand(newClient),
	)
	return cmd
}

func newCommandsSubmitCommand(newClient func() *client.Client) *cobra.Command {
	var fleetID, initiatedBy string
	cmd := &cobra.Command{
		Use:   "submit <device-id> <command text>",
		Short: "Dispatch a natural language command to one device.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, err := newClient().SubmitCommand(cmd.Context(), fleetID, args[0], args[1], initiatedBy)
			if err != nil {
				return err
			}
			fmt.Printf("submitted command %s (correlation %s)\n", envelope.ID, envelope.CorrelationID)
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet-id", "", "Fleet the device belongs to.")
	cmd.Flags().StringVar(&initiatedBy, "initiated-by", "operator", "Identity recorded as the command's initiator.")
	cmd.MarkFlagRequired("fleet-id")
	return cmd
}

func newCommandsListCommand(newClient func() *client.Client) *cobra.Command {
	var fleetID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked commands, optionally filtered to one fleet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := newClient().ListCommands(cmd.Context(), fleetID)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.MaxColWidth = 60
			table.AddRow("CORRELATION ID", "DEVICE", "STATUS", "COMMAND")
			for _, v := range views {
				table.AddRow(v.Envelope.CorrelationID, v.Envelope.DeviceID, v.Status, v.Envelope.NaturalLanguage)
			}
			fmt.Println(table)
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet-id", "", "Restrict the listing to one fleet.")
	return cmd
}

func newCommandsGetCommand(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <correlation-id>",
		Short: "Show one command's envelope and response.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid correlation id: %w", err)
			}
			v, err := newClient().GetCommand(cmd.Context(), id)
			if err != nil {
				return err
			}

			table := uitable.New()
			table.MaxColWidth = 80
			table.AddRow("CORRELATION ID", v.Envelope.CorrelationID)
			table.AddRow("DEVICE", v.Envelope.DeviceID)
			table.AddRow("COMMAND", v.Envelope.NaturalLanguage)
			table.AddRow("STATUS", v.Status)
			if v.Response != nil {
				table.AddRow("INFERENCE TIER", v.Response.InferenceTier)
				table.AddRow("RESPONSE", v.Response.ResponseText)
				if v.Response.Error != "" {
					table.AddRow("ERROR", v.Response.Error)
				}
				table.AddRow("LATENCY MS", v.Response.LatencyMs)
			}
			fmt.Println(table)
			return nil
		},
	}
}
