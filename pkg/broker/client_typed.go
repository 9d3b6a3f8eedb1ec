package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
	"github.com/zeroclaw/fleetctl/pkg/topic"
)

// QoS levels used across the fleet topic schema. Commands and shadow
// updates use at-least-once delivery; heartbeats tolerate at-most-once.
const (
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
)

// TypedChannel layers the fleet wire types over a raw Channel, so callers
// never hand-marshal envelopes or format topic strings themselves.
type TypedChannel struct {
	Channel
	topics *topic.Builder
}

// NewTypedChannel wraps ch with the topic schema for one fleet.
func NewTypedChannel(ch Channel, fleetID string) *TypedChannel {
	return &TypedChannel{Channel: ch, topics: topic.NewBuilder(fleetID)}
}

// PublishCommand sends a command envelope to one device.
func (t *TypedChannel) PublishCommand(ctx context.Context, deviceID string, cmd protocol.CommandEnvelope) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command envelope: %w", err)
	}
	return t.Publish(ctx, t.topics.CommandRequest(deviceID), QoSAtLeastOnce, false, payload)
}

// PublishCommandResponse sends a command response from a device to the cloud.
func (t *TypedChannel) PublishCommandResponse(ctx context.Context, deviceID string, resp protocol.CommandResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal command response: %w", err)
	}
	return t.Publish(ctx, t.topics.CommandResponse(deviceID), QoSAtLeastOnce, false, payload)
}

// PublishHeartbeat sends a heartbeat, retained so a new subscriber sees the
// device's last known state immediately.
func (t *TypedChannel) PublishHeartbeat(ctx context.Context, deviceID string, hb protocol.Heartbeat) error {
	payload, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	return t.Publish(ctx, t.topics.HeartbeatPing(deviceID), QoSAtMostOnce, true, payload)
}

// PublishShadowUpdate reports a device's reported-state patch.
func (t *TypedChannel) PublishShadowUpdate(ctx context.Context, deviceID string, upd protocol.ShadowUpdate) error {
	payload, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("marshal shadow update: %w", err)
	}
	return t.Publish(ctx, t.topics.ShadowUpdate(deviceID), QoSAtLeastOnce, true, payload)
}

// PublishShadowDelta pushes a desired-state delta down to a device.
func (t *TypedChannel) PublishShadowDelta(ctx context.Context, deviceID string, delta protocol.ShadowDelta) error {
	payload, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("marshal shadow delta: %w", err)
	}
	return t.Publish(ctx, t.topics.ShadowDelta(deviceID), QoSAtLeastOnce, false, payload)
}

// PublishTelemetry sends one telemetry reading on its source-specific topic.
func (t *TypedChannel) PublishTelemetry(ctx context.Context, deviceID string, reading protocol.TelemetryReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("marshal telemetry reading: %w", err)
	}
	return t.Publish(ctx, t.topics.Telemetry(deviceID, string(reading.Source)), QoSAtMostOnce, false, payload)
}

// CommandHandler is invoked for each command envelope received on a
// device's command-request topic.
type CommandHandler func(ctx context.Context, deviceID string, cmd protocol.CommandEnvelope)

// SubscribeDeviceCommands subscribes to the command-request topic for one
// device, decoding each payload before invoking handler.
func (t *TypedChannel) SubscribeDeviceCommands(ctx context.Context, deviceID string, handler CommandHandler) error {
	return t.Subscribe(ctx, t.topics.CommandRequest(deviceID), QoSAtLeastOnce, func(ctx context.Context, topicStr string, payload []byte) {
		var cmd protocol.CommandEnvelope
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return
		}
		handler(ctx, deviceID, cmd)
	})
}

// ShadowDeltaHandler is invoked for each shadow delta pushed to a device.
type ShadowDeltaHandler func(ctx context.Context, deviceID string, delta protocol.ShadowDelta)

// SubscribeDeviceShadowDeltas subscribes to the shadow-delta topic for one
// device.
func (t *TypedChannel) SubscribeDeviceShadowDeltas(ctx context.Context, deviceID string, handler ShadowDeltaHandler) error {
	return t.Subscribe(ctx, t.topics.ShadowDelta(deviceID), QoSAtLeastOnce, func(ctx context.Context, topicStr string, payload []byte) {
		var delta protocol.ShadowDelta
		if err := json.Unmarshal(payload, &delta); err != nil {
			return
		}
		handler(ctx, deviceID, delta)
	})
}
