package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// CommandDispatchedPayload accompanies TypeCommandDispatched, published by
// the REST submit handler the moment an envelope is handed to the broker.
type CommandDispatchedPayload struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	DeviceID      string    `json:"device_id"`
	FleetID       string    `json:"fleet_id"`
}

// CommandResponsePayload accompanies TypeCommandResponse, published by the
// bridge once a device's response has been matched and stored.
type CommandResponsePayload struct {
	Response protocol.CommandResponse `json:"response"`
}

// DeviceHeartbeatPayload accompanies TypeDeviceHeartbeat.
type DeviceHeartbeatPayload struct {
	Heartbeat protocol.Heartbeat `json:"heartbeat"`
}

// DeviceStatusChangedPayload accompanies TypeDeviceStatusChanged.
type DeviceStatusChangedPayload struct {
	DeviceID  string                `json:"device_id"`
	FleetID   string                `json:"fleet_id"`
	Old       protocol.DeviceStatus `json:"old_status"`
	New       protocol.DeviceStatus `json:"new_status"`
	Timestamp time.Time             `json:"timestamp"`
}

// DeviceProvisionedPayload accompanies TypeDeviceProvisioned, published by
// the REST device-provisioning handler.
type DeviceProvisionedPayload struct {
	Device protocol.DeviceRecord `json:"device"`
}

// TelemetryIngestedPayload accompanies TypeTelemetryIngested.
type TelemetryIngestedPayload struct {
	DeviceID string                  `json:"device_id"`
	Source   protocol.TelemetrySource `json:"source"`
	Count    int                     `json:"count"`
}

// ShadowUpdatedPayload accompanies TypeShadowUpdated.
type ShadowUpdatedPayload struct {
	DeviceID   string               `json:"device_id"`
	ShadowName string               `json:"shadow_name"`
	State      protocol.ShadowState `json:"state"`
}

// AlertRaisedPayload accompanies TypeAlertRaised, supplementing the
// distilled event set with the alert channel the original protocol crate
// also carries (see pkg/topic.Builder.AlertNotify).
type AlertRaisedPayload struct {
	DeviceID string    `json:"device_id"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}
