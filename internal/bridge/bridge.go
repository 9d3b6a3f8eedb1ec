// Package bridge is the cloud-side broker ingress: it subscribes to every
// fleet device's outbound topics and dispatches inbound messages into
// internal/cloud.Service. It mirrors the teacher's mqtt.Server — a thin
// transport-to-service adapter with no business logic of its own.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeroclaw/fleetctl/internal/cloud"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
	"github.com/zeroclaw/fleetctl/pkg/topic"
)

const subscribeQoS = broker.QoSAtLeastOnce

// Bridge owns the broker-side subscriptions that feed a cloud Service.
type Bridge struct {
	channel broker.Channel
	svc     *cloud.Service
	topics  *topic.Builder
	log     log.Logger
}

// New builds a Bridge scoped to one fleet. The cloud binary runs one Bridge
// per fleet it serves.
func New(channel broker.Channel, svc *cloud.Service, fleetID string) *Bridge {
	return &Bridge{
		channel: channel,
		svc:     svc,
		topics:  topic.NewBuilder(fleetID),
		log:     log.WithName("bridge"),
	}
}

// Start waits for the channel's connection (the caller starts the
// channel), subscribes to every inbound filter, and blocks
// until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.channel.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("await broker connection: %w", err)
	}

	if err := b.subscribeAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func (b *Bridge) subscribeAll(ctx context.Context) error {
	subscriptions := map[string]broker.MessageHandler{
		b.topics.FleetCommandResponses(): b.handleCommandResponse,
		b.topics.FleetHeartbeats():       b.handleHeartbeat,
		b.topics.FleetTelemetry():        b.handleTelemetry,
		b.topics.FleetShadowUpdates():    b.handleShadowUpdate,
		b.topics.FleetAlerts():           b.handleAlert,
	}

	for filter, handler := range subscriptions {
		if err := b.channel.Subscribe(ctx, filter, subscribeQoS, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", filter, err)
		}
	}
	return nil
}

func (b *Bridge) handleCommandResponse(ctx context.Context, t string, payload []byte) {
	var resp protocol.CommandResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		b.log.Error(err, "decode command response", "topic", t)
		return
	}
	if err := b.svc.HandleResponse(ctx, resp); err != nil {
		b.log.Error(err, "handle command response", "topic", t, "correlation_id", resp.CorrelationID)
	}
}

func (b *Bridge) handleHeartbeat(ctx context.Context, t string, payload []byte) {
	var hb protocol.Heartbeat
	if err := json.Unmarshal(payload, &hb); err != nil {
		b.log.Error(err, "decode heartbeat", "topic", t)
		return
	}
	if hb.Timestamp.IsZero() {
		hb.Timestamp = time.Now().UTC()
	}
	if err := b.svc.HandleHeartbeat(ctx, hb); err != nil {
		b.log.Error(err, "handle heartbeat", "topic", t, "device_id", hb.DeviceID)
	}
}

func (b *Bridge) handleTelemetry(ctx context.Context, t string, payload []byte) {
	var r protocol.TelemetryReading
	if err := json.Unmarshal(payload, &r); err != nil {
		b.log.Error(err, "decode telemetry", "topic", t)
		return
	}
	if err := b.svc.HandleTelemetry(ctx, r); err != nil {
		b.log.Error(err, "handle telemetry", "topic", t, "device_id", r.DeviceID)
	}
}

func (b *Bridge) handleAlert(ctx context.Context, t string, payload []byte) {
	var a protocol.Alert
	if err := json.Unmarshal(payload, &a); err != nil {
		b.log.Error(err, "decode alert", "topic", t)
		return
	}
	if err := b.svc.HandleAlert(ctx, a); err != nil {
		b.log.Error(err, "handle alert", "topic", t, "device_id", a.DeviceID)
	}
}

func (b *Bridge) handleShadowUpdate(ctx context.Context, t string, payload []byte) {
	var upd protocol.ShadowUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		b.log.Error(err, "decode shadow update", "topic", t)
		return
	}
	if err := b.svc.HandleShadowUpdate(ctx, b.topics.FleetID(), upd); err != nil {
		b.log.Error(err, "handle shadow update", "topic", t, "device_id", upd.DeviceID)
	}
}
