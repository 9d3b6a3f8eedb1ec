// Package protocol defines the wire types shared by the cloud bridge and
// the edge agent: command envelopes, parsed intents, responses, device
// records, heartbeats, shadows and telemetry readings. Every type here is
// serialized as JSON at the broker and REST boundaries.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeoutSecs is the command timeout applied when an envelope omits
// TimeoutSecs.
const DefaultTimeoutSecs = 30

// CommandEnvelope wraps an operator request on its way from the cloud to a
// specific device. It is immutable once published; every CommandResponse
// references exactly one envelope via CorrelationID.
type CommandEnvelope struct {
	ID              uuid.UUID        `json:"id"`
	FleetID         string           `json:"fleet_id"`
	DeviceID        string           `json:"device_id"`
	NaturalLanguage string           `json:"natural_language"`
	ParsedIntent    *ParsedIntent    `json:"parsed_intent,omitempty"`
	CorrelationID   uuid.UUID        `json:"correlation_id"`
	InitiatedBy     string           `json:"initiated_by"`
	CreatedAt       time.Time        `json:"created_at"`
	TimeoutSecs     uint32           `json:"timeout_secs"`
}

// NewCommandEnvelope constructs an envelope with a fresh time-sortable ID,
// using that ID as the correlation ID, and the default timeout.
func NewCommandEnvelope(fleetID, deviceID, naturalLanguage, initiatedBy string) CommandEnvelope {
	id := uuid.Must(uuid.NewV7())
	return CommandEnvelope{
		ID:              id,
		FleetID:         fleetID,
		DeviceID:        deviceID,
		NaturalLanguage: naturalLanguage,
		CorrelationID:   id,
		InitiatedBy:     initiatedBy,
		CreatedAt:       time.Now().UTC(),
		TimeoutSecs:     DefaultTimeoutSecs,
	}
}

// ActionKind tags what a ParsedIntent asks the executor to do.
type ActionKind string

const (
	ActionTool  ActionKind = "tool"
	ActionShell ActionKind = "shell"
	ActionReply ActionKind = "reply"
)

// ParsedIntent is the structured interpretation of an operator's natural
// language request, produced by one of the three inference engines.
//
// Invariant: when Action is ActionTool, Name must be a registered tool
// name; when ActionShell, Name must pass the shell sanitizer; when
// ActionReply, Args must contain a non-empty "message" key.
type ParsedIntent struct {
	Action     ActionKind      `json:"action"`
	Name       string          `json:"tool_name"`
	Args       json.RawMessage `json:"tool_args,omitempty"`
	Confidence float64         `json:"confidence"`
}

// ReplyMessage extracts the "message" key from a Reply-action intent's
// arguments. Returns ok=false if Args is empty or the key is missing.
func (p ParsedIntent) ReplyMessage() (string, bool) {
	if len(p.Args) == 0 {
		return "", false
	}
	var m map[string]any
	if err := json.Unmarshal(p.Args, &m); err != nil {
		return "", false
	}
	msg, ok := m["message"].(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}

// CommandStatus is the lifecycle status of a CommandResponse.
type CommandStatus string

const (
	StatusPending    CommandStatus = "pending"
	StatusSent       CommandStatus = "sent"
	StatusProcessing CommandStatus = "processing"
	StatusCompleted  CommandStatus = "completed"
	StatusFailed     CommandStatus = "failed"
	StatusTimeout    CommandStatus = "timeout"
	StatusCancelled  CommandStatus = "cancelled"
)

// IsTerminal reports whether the status is one of the terminal outcomes a
// command must eventually reach.
func (s CommandStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	default:
		return false
	}
}

// InferenceTier identifies which engine produced the intent behind a
// response, used for cost accounting and observability.
type InferenceTier string

const (
	TierLocal       InferenceTier = "local"
	TierCloudLite   InferenceTier = "cloud_lite"
	TierCloudHaiku  InferenceTier = "cloud_haiku"
	TierCloudSonnet InferenceTier = "cloud_sonnet"
)

// CommandResponse is the device's terminal answer to exactly one
// CommandEnvelope, matched by CorrelationID.
//
// Invariant: status Completed implies Error is empty; status Failed
// implies Error is non-empty.
type CommandResponse struct {
	CommandID     uuid.UUID       `json:"command_id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	DeviceID      string          `json:"device_id"`
	Status        CommandStatus   `json:"status"`
	InferenceTier InferenceTier   `json:"inference_tier"`
	ResponseText  string          `json:"response_text,omitempty"`
	ResponseData  json.RawMessage `json:"response_data,omitempty"`
	LatencyMs     uint64          `json:"latency_ms"`
	RespondedAt   time.Time       `json:"responded_at"`
	Error         string          `json:"error,omitempty"`
	Truncated     bool            `json:"truncated,omitempty"`
}

// Validate checks the Completed/Failed-implies-Error invariant.
func (r CommandResponse) Validate() error {
	if r.Status == StatusCompleted && r.Error != "" {
		return errCompletedWithError
	}
	if r.Status == StatusFailed && r.Error == "" {
		return errFailedWithoutError
	}
	return nil
}
