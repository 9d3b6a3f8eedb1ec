package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// MemoryStore is the always-authoritative in-memory implementation of
// Store. One reader-writer lock guards each concept (devices, commands,
// telemetry, shadows) rather than a single monolithic lock, per the
// cloud's shared-state policy; no lock is ever held across I/O.
type MemoryStore struct {
	devicesMu sync.RWMutex
	devices   map[string]protocol.DeviceRecord

	commandsMu sync.RWMutex
	commands   map[uuid.UUID]CommandRecord

	telemetryMu sync.RWMutex
	telemetry   map[string][]protocol.TelemetryReading

	shadowsMu sync.RWMutex
	shadows   map[string]map[string]protocol.ShadowState
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:   make(map[string]protocol.DeviceRecord),
		commands:  make(map[uuid.UUID]CommandRecord),
		telemetry: make(map[string][]protocol.TelemetryReading),
		shadows:   make(map[string]map[string]protocol.ShadowState),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) UpsertDevice(ctx context.Context, d protocol.DeviceRecord) error {
	m.devicesMu.Lock()
	defer m.devicesMu.Unlock()
	m.devices[d.DeviceID] = d
	return nil
}

func (m *MemoryStore) GetDevice(ctx context.Context, deviceID string) (protocol.DeviceRecord, bool, error) {
	m.devicesMu.RLock()
	defer m.devicesMu.RUnlock()
	d, ok := m.devices[deviceID]
	return d, ok, nil
}

func (m *MemoryStore) ListDevices(ctx context.Context, fleetID string) ([]protocol.DeviceRecord, error) {
	m.devicesMu.RLock()
	defer m.devicesMu.RUnlock()
	out := make([]protocol.DeviceRecord, 0, len(m.devices))
	for _, d := range m.devices {
		if fleetID == "" || d.FleetID == fleetID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) PutEnvelope(ctx context.Context, e protocol.CommandEnvelope) error {
	m.commandsMu.Lock()
	defer m.commandsMu.Unlock()
	m.commands[e.CorrelationID] = CommandRecord{Envelope: e}
	return nil
}

func (m *MemoryStore) PutResponse(ctx context.Context, r protocol.CommandResponse) error {
	m.commandsMu.Lock()
	defer m.commandsMu.Unlock()
	rec, ok := m.commands[r.CorrelationID]
	if !ok {
		// A response with no matching envelope (e.g. the cloud restarted
		// mid-flight) is still recorded so it isn't silently dropped.
		rec = CommandRecord{}
	}
	resp := r
	rec.Response = &resp
	m.commands[r.CorrelationID] = rec
	return nil
}

func (m *MemoryStore) GetCommand(ctx context.Context, correlationID uuid.UUID) (CommandRecord, bool, error) {
	m.commandsMu.RLock()
	defer m.commandsMu.RUnlock()
	rec, ok := m.commands[correlationID]
	return rec, ok, nil
}

func (m *MemoryStore) ListCommands(ctx context.Context, fleetID string) ([]CommandRecord, error) {
	m.commandsMu.RLock()
	defer m.commandsMu.RUnlock()
	out := make([]CommandRecord, 0, len(m.commands))
	for _, rec := range m.commands {
		if fleetID == "" || rec.Envelope.FleetID == fleetID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendTelemetry(ctx context.Context, r protocol.TelemetryReading) error {
	m.telemetryMu.Lock()
	defer m.telemetryMu.Unlock()
	m.telemetry[r.DeviceID] = append(m.telemetry[r.DeviceID], r)
	return nil
}

func (m *MemoryStore) ListTelemetry(ctx context.Context, deviceID string, limit int) ([]protocol.TelemetryReading, error) {
	m.telemetryMu.RLock()
	defer m.telemetryMu.RUnlock()
	readings := m.telemetry[deviceID]
	if limit <= 0 || limit > len(readings) {
		limit = len(readings)
	}
	out := make([]protocol.TelemetryReading, limit)
	copy(out, readings[len(readings)-limit:])
	return out, nil
}

func (m *MemoryStore) RecordHeartbeat(ctx context.Context, hb protocol.Heartbeat) error {
	m.devicesMu.Lock()
	defer m.devicesMu.Unlock()
	d, ok := m.devices[hb.DeviceID]
	if !ok {
		d = protocol.DeviceRecord{DeviceID: hb.DeviceID, FleetID: hb.FleetID}
	}
	ts := hb.Timestamp
	d.LastHeartbeat = &ts
	m.devices[hb.DeviceID] = d
	return nil
}

func (m *MemoryStore) GetShadow(ctx context.Context, deviceID, shadowName string) (protocol.ShadowState, bool, error) {
	m.shadowsMu.RLock()
	defer m.shadowsMu.RUnlock()
	byName, ok := m.shadows[deviceID]
	if !ok {
		return protocol.ShadowState{}, false, nil
	}
	s, ok := byName[shadowName]
	return s, ok, nil
}

func (m *MemoryStore) ListShadowNames(ctx context.Context, deviceID string) ([]string, error) {
	m.shadowsMu.RLock()
	defer m.shadowsMu.RUnlock()
	byName := m.shadows[deviceID]
	out := make([]string, 0, len(byName))
	for name := range byName {
		out = append(out, name)
	}
	return out, nil
}

func (m *MemoryStore) UpsertShadow(ctx context.Context, deviceID, shadowName string, s protocol.ShadowState) error {
	m.shadowsMu.Lock()
	defer m.shadowsMu.Unlock()
	byName, ok := m.shadows[deviceID]
	if !ok {
		byName = make(map[string]protocol.ShadowState)
		m.shadows[deviceID] = byName
	}
	byName[shadowName] = s
	return nil
}
