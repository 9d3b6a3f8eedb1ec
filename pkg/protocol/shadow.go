package protocol

import (
	"encoding/json"
	"time"
)

// ShadowState is the per (device_id, shadow_name) twin: the device's
// last-reported state paired with the cloud's desired target.
//
// Invariants: Version increases on any mutation; Reported is written only
// from device-originating updates, Desired only from cloud-originating
// ones; both default to an empty JSON object.
type ShadowState struct {
	Reported    json.RawMessage `json:"reported"`
	Desired     json.RawMessage `json:"desired"`
	Version     uint64          `json:"version"`
	LastUpdated time.Time       `json:"last_updated"`
}

// ShadowUpdate is a reported-state patch sent from device to cloud.
type ShadowUpdate struct {
	DeviceID   string          `json:"device_id"`
	ShadowName string          `json:"shadow_name"`
	Reported   json.RawMessage `json:"reported"`
	Version    uint64          `json:"version"`
}

// ShadowDelta carries the keys of Desired that diverge from Reported,
// published from cloud to device so the device can converge. An empty
// delta is never emitted.
type ShadowDelta struct {
	DeviceID   string          `json:"device_id"`
	ShadowName string          `json:"shadow_name"`
	Delta      json.RawMessage `json:"delta"`
	Version    uint64          `json:"version"`
	Timestamp  time.Time       `json:"timestamp"`
}

// EmptyJSONObject is the canonical zero value for ShadowState.Reported and
// ShadowState.Desired.
var EmptyJSONObject = json.RawMessage(`{}`)
