package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/zeroclaw/fleetctl/cmd/fleetctl/client"
)

func newShadowsCommand(newClient func() *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shadows",
		Short: "Inspect and update device shadow state.",
	}
	cmd.AddCommand(
		newShadowsGetCommand(newClient),
		newShadowsSetDesiredCommand(newClient),
	)
	return cmd
}

func newShadowsGetCommand(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <device-id> <shadow-name>",
		Short: "Show one device shadow's reported, desired and delta state.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().GetShadow(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			table := uitable.New()
			table.MaxColWidth = 100
			table.Wrap = true
			table.AddRow("VERSION", v.Version)
			table.AddRow("REPORTED", string(v.Reported))
			table.AddRow("DESIRED", string(v.Desired))
			table.AddRow("DELTA", string(v.Delta))
			fmt.Println(table)
			return nil
		},
	}
}

func newShadowsSetDesiredCommand(newClient func() *client.Client) *cobra.Command {
	var fleetID, file string
	cmd := &cobra.Command{
		Use:   "set-desired <device-id> <shadow-name>",
		Short: "Write a new desired document for one device shadow.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDesiredDocument(file)
			if err != nil {
				return err
			}
			if !json.Valid(raw) {
				return fmt.Errorf("desired document is not valid JSON")
			}

			state, err := newClient().SetDesiredShadow(cmd.Context(), fleetID, args[0], args[1], raw)
			if err != nil {
				return err
			}
			fmt.Printf("desired shadow updated, version %d\n", state.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&fleetID, "fleet-id", "", "Fleet the device belongs to.")
	cmd.Flags().StringVar(&file, "file", "-", "Path to the desired-state JSON document, or - for stdin.")
	cmd.MarkFlagRequired("fleet-id")
	return cmd
}

func readDesiredDocument(file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}
