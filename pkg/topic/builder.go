// Package topic builds and parses the broker topic hierarchy shared by the
// cloud bridge and the edge agent.
package topic

import (
	"fmt"
	"strings"
)

// Wildcard symbols recognized by the broker's subscription matcher.
const (
	Wildcard      = "+"
	MultiWildcard = "#"
)

const prefix = "fleet"

// Builder constructs topic strings for one fleet. It is the single place
// that knows the on-wire shape of the schema; callers never format topic
// strings by hand.
type Builder struct {
	fleetID string
}

// NewBuilder returns a Builder scoped to fleetID.
func NewBuilder(fleetID string) *Builder {
	return &Builder{fleetID: fleetID}
}

// FleetID returns the fleet this Builder is scoped to.
func (b *Builder) FleetID() string { return b.fleetID }

func (b *Builder) device(deviceID, category, action string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", prefix, b.fleetID, deviceID, category, action)
}

func (b *Builder) broadcast(category, action string) string {
	return fmt.Sprintf("%s/%s/broadcast/%s/%s", prefix, b.fleetID, category, action)
}

// CommandRequest: cloud -> device.
func (b *Builder) CommandRequest(deviceID string) string { return b.device(deviceID, "command", "request") }

// CommandResponse: device -> cloud.
func (b *Builder) CommandResponse(deviceID string) string { return b.device(deviceID, "command", "response") }

// CommandAck: device -> cloud.
func (b *Builder) CommandAck(deviceID string) string { return b.device(deviceID, "command", "ack") }

// HeartbeatPing: device -> cloud.
func (b *Builder) HeartbeatPing(deviceID string) string { return b.device(deviceID, "heartbeat", "ping") }

// Telemetry: device -> cloud, one topic per source.
func (b *Builder) Telemetry(deviceID, source string) string {
	return b.device(deviceID, "telemetry", source)
}

// ShadowUpdate: device -> cloud (reported state).
func (b *Builder) ShadowUpdate(deviceID string) string { return b.device(deviceID, "shadow", "update") }

// ShadowDelta: cloud -> device.
func (b *Builder) ShadowDelta(deviceID string) string { return b.device(deviceID, "shadow", "delta") }

// AlertNotify: device -> cloud. Supplements the distilled schema with the
// alert channel present in the original protocol crate.
func (b *Builder) AlertNotify(deviceID string) string { return b.device(deviceID, "alert", "notify") }

// BroadcastCommandRequest: cloud -> fleet.
func (b *Builder) BroadcastCommandRequest() string { return b.broadcast("command", "request") }

// BroadcastConfigUpdate: cloud -> fleet.
func (b *Builder) BroadcastConfigUpdate() string { return b.broadcast("config", "update") }

// DeviceSubscribeAll returns the multi-level wildcard subscription used by
// an edge agent to receive every topic addressed to it.
func (b *Builder) DeviceSubscribeAll(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", prefix, b.fleetID, deviceID, MultiWildcard)
}

// FleetCommandResponses is the cloud bridge's subscription filter for every
// device's command responses in the fleet.
func (b *Builder) FleetCommandResponses() string {
	return fmt.Sprintf("%s/%s/%s/command/response", prefix, b.fleetID, Wildcard)
}

// FleetHeartbeats is the cloud bridge's subscription filter for every
// device's heartbeats in the fleet.
func (b *Builder) FleetHeartbeats() string {
	return fmt.Sprintf("%s/%s/%s/heartbeat/ping", prefix, b.fleetID, Wildcard)
}

// FleetTelemetry is the cloud bridge's subscription filter for every
// device's telemetry of any source in the fleet.
func (b *Builder) FleetTelemetry() string {
	return fmt.Sprintf("%s/%s/%s/telemetry/%s", prefix, b.fleetID, Wildcard, MultiWildcard)
}

// FleetShadowUpdates is the cloud bridge's subscription filter for every
// device's reported-state updates in the fleet.
func (b *Builder) FleetShadowUpdates() string {
	return fmt.Sprintf("%s/%s/%s/shadow/update", prefix, b.fleetID, Wildcard)
}

// FleetAlerts is the cloud bridge's subscription filter for every device's
// alerts in the fleet.
func (b *Builder) FleetAlerts() string {
	return fmt.Sprintf("%s/%s/%s/alert/notify", prefix, b.fleetID, Wildcard)
}

// Category tags the coarse kind of an incoming message, classified from its
// topic before dispatch.
type Category string

const (
	CategoryCommand      Category = "command"
	CategoryShadowDelta  Category = "shadow_delta"
	CategoryConfigUpdate Category = "config_update"
	CategoryUnknown      Category = "unknown"
)

// Parsed holds the decomposed segments of a topic string matching the
// fleet/{fleet_id}/{device_id|broadcast}/{category}/{action} shape.
type Parsed struct {
	FleetID  string
	DeviceID string // empty for broadcast topics
	Category string
	Action   string
}

// Parse decomposes a topic string. It returns ok=false for anything that
// doesn't match the schema (wrong prefix, too few segments, empty string).
func Parse(topic string) (Parsed, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[0] != prefix {
		return Parsed{}, false
	}

	fleetID := parts[1]

	if parts[2] == "broadcast" {
		if len(parts) < 5 {
			return Parsed{}, false
		}
		return Parsed{FleetID: fleetID, Category: parts[3], Action: parts[4]}, true
	}

	if len(parts) < 5 {
		return Parsed{}, false
	}
	return Parsed{FleetID: fleetID, DeviceID: parts[2], Category: parts[3], Action: parts[4]}, true
}

// Classify maps a parsed topic to the coarse category an agent or bridge
// dispatches on.
func Classify(p Parsed) Category {
	switch {
	case p.Category == "command":
		return CategoryCommand
	case p.Category == "shadow" && p.Action == "delta":
		return CategoryShadowDelta
	case p.Category == "config" && p.Action == "update":
		return CategoryConfigUpdate
	default:
		return CategoryUnknown
	}
}
