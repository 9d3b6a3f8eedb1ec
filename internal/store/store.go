// Package store defines the cloud bridge's persistence boundary: a small
// Store interface over the five spec entities (devices, commands,
// telemetry readings, heartbeats, device shadows), backed by an
// always-authoritative in-memory implementation and an optional Postgres
// mirror. Tests run exclusively against the in-memory mode; in production
// DualStore reads from memory and mirrors every write to Postgres.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// Store is the repository surface the cloud bridge and REST layer consume.
// Every method is safe for concurrent use.
type Store interface {
	// Devices
	UpsertDevice(ctx context.Context, d protocol.DeviceRecord) error
	GetDevice(ctx context.Context, deviceID string) (protocol.DeviceRecord, bool, error)
	ListDevices(ctx context.Context, fleetID string) ([]protocol.DeviceRecord, error)

	// Commands: the envelope and its eventual response are tracked
	// together, keyed by the envelope's CorrelationID.
	PutEnvelope(ctx context.Context, e protocol.CommandEnvelope) error
	PutResponse(ctx context.Context, r protocol.CommandResponse) error
	GetCommand(ctx context.Context, correlationID uuid.UUID) (CommandRecord, bool, error)
	ListCommands(ctx context.Context, fleetID string) ([]CommandRecord, error)

	// Telemetry
	AppendTelemetry(ctx context.Context, r protocol.TelemetryReading) error
	ListTelemetry(ctx context.Context, deviceID string, limit int) ([]protocol.TelemetryReading, error)

	// Heartbeats
	RecordHeartbeat(ctx context.Context, hb protocol.Heartbeat) error

	// Shadows
	GetShadow(ctx context.Context, deviceID, shadowName string) (protocol.ShadowState, bool, error)
	ListShadowNames(ctx context.Context, deviceID string) ([]string, error)
	UpsertShadow(ctx context.Context, deviceID, shadowName string, s protocol.ShadowState) error
}

// CommandRecord pairs one envelope with its response, if any has arrived
// yet. Status mirrors Response.Status, or StatusPending when no response
// has been recorded.
type CommandRecord struct {
	Envelope protocol.CommandEnvelope  `json:"envelope"`
	Response *protocol.CommandResponse `json:"response,omitempty"`
}

// Status reports the record's current lifecycle status: the stored
// response's status, or StatusPending when no response has arrived yet.
// It never infers a timeout — that is ClientStatus's job — so it always
// reflects exactly what is on disk.
func (c CommandRecord) Status() protocol.CommandStatus {
	if c.Response == nil {
		return protocol.StatusPending
	}
	return c.Response.Status
}

// clientTimeoutEpsilon is the slack added to an envelope's TimeoutSecs
// before a still-Pending command is reported to an operator session as
// timed out (spec.md §9's open question on where timeout_secs is
// enforced: the agent owns the hard wall-clock timeout inside the
// executor, this method owns the client-visible one).
const clientTimeoutEpsilon = 2 * time.Second

// ClientStatus reports the status an operator session should see: the
// stored Status, or StatusTimeout once now is more than TimeoutSecs+ε
// past the envelope's CreatedAt without a response. It never mutates the
// record — a late response can still arrive and supersede it.
func (c CommandRecord) ClientStatus(now time.Time) protocol.CommandStatus {
	status := c.Status()
	if status != protocol.StatusPending {
		return status
	}
	timeout := time.Duration(c.Envelope.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = protocol.DefaultTimeoutSecs * time.Second
	}
	if now.Sub(c.Envelope.CreatedAt) > timeout+clientTimeoutEpsilon {
		return protocol.StatusTimeout
	}
	return status
}

// ErrNotFound is a "not found" error value. No Store implementation
// returns it: both the in-memory and the Postgres store report a missing
// row with the (value, false, nil) idiom, so callers never need to
// distinguish "not found" by error type.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "store: not found" }
