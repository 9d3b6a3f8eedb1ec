package broker_test

import (
	"context"
	"fmt"
	"time"

	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/log"
)

// Example_cloudBridge shows how a cloud-side component wires up a Channel:
// create it from config, start it, subscribe to every device's command
// responses, and publish a command to one device.
func Example_cloudBridge() {
	cfg := &broker.ClientConfig{
		BrokerURL:      "mqtts://broker.internal:8883",
		ClientID:       "fleet-cloud-bridge",
		Username:       "bridge",
		Password:       "secret",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	ch, err := broker.NewClient(cfg)
	if err != nil {
		log.Error(err, "failed to create broker channel")
		return
	}

	handler := func(ctx context.Context, topic string, payload []byte) {
		// Handlers run on their own goroutine; keep them short and hand
		// off anything slow.
		fmt.Printf("received on %s: %s\n", topic, string(payload))
	}

	ctx := context.Background()
	_ = ch.Start(ctx)
	_ = ch.Subscribe(ctx, "fleet/fleet-alpha/+/command/response", 1, handler)
	_ = ch.Publish(ctx, "fleet/fleet-alpha/rpi-001/command/request", 1, false, []byte(`{"natural_language":"read the VIN"}`))
	ch.Disconnect(ctx)
}
