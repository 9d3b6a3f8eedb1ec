package protocol

import (
	"encoding/json"
	"time"
)

// DeviceStatus is the lifecycle status of a DeviceRecord.
type DeviceStatus string

const (
	DeviceProvisioning  DeviceStatus = "provisioning"
	DeviceOnline        DeviceStatus = "online"
	DeviceOffline       DeviceStatus = "offline"
	DeviceMaintenance   DeviceStatus = "maintenance"
	DeviceDecommissioned DeviceStatus = "decommissioned"
)

// HardwareType names the edge device's hardware platform.
type HardwareType string

const (
	HardwareRaspberryPi4  HardwareType = "raspberry_pi4"
	HardwareRaspberryPi5  HardwareType = "raspberry_pi5"
	HardwareIndustrialSBC HardwareType = "industrial_sbc"
)

// DeviceRecord is the cloud's registry entry for one fleet device.
//
// Lifecycle: Provisioning on registration, transitions to Online on the
// first heartbeat, to Offline after a miss window (default 3x the
// heartbeat interval).
type DeviceRecord struct {
	DeviceID      string          `json:"device_id"`
	FleetID       string          `json:"fleet_id"`
	Status        DeviceStatus    `json:"status"`
	HardwareType  HardwareType    `json:"hardware_type"`
	VIN           string          `json:"vin,omitempty"`
	LastHeartbeat *time.Time      `json:"last_heartbeat,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ServiceStatus is the health of an edge subsystem reported in a Heartbeat.
type ServiceStatus string

const (
	ServiceRunning ServiceStatus = "running"
	ServiceStopped ServiceStatus = "stopped"
	ServiceError   ServiceStatus = "error"
	ServiceUnknown ServiceStatus = "unknown"
)

// Heartbeat is issued unilaterally by the agent on a fixed interval to
// signal liveness and subsystem health.
type Heartbeat struct {
	DeviceID     string        `json:"device_id"`
	FleetID      string        `json:"fleet_id"`
	Status       DeviceStatus  `json:"status"`
	UptimeSecs   uint64        `json:"uptime_secs"`
	OllamaStatus ServiceStatus `json:"ollama_status"`
	CANStatus    ServiceStatus `json:"can_status"`
	AgentVersion string        `json:"agent_version"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Alert is published device -> cloud when the agent wants to surface a
// condition between heartbeats, rather than waiting for the next periodic
// shadow or heartbeat cycle to carry it. A failed CAN-backed tool call is
// the agent's one current source of alerts.
type Alert struct {
	DeviceID string    `json:"device_id"`
	FleetID  string    `json:"fleet_id"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// IsOffline reports whether a device has missed heartbeats for longer than
// window, given the current time now. A nil LastHeartbeat is always
// offline.
func (d DeviceRecord) IsOffline(now time.Time, window time.Duration) bool {
	if d.LastHeartbeat == nil {
		return true
	}
	return now.Sub(*d.LastHeartbeat) > window
}
