package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// DualStore treats Postgres as a cache-behind-a-repository-interface: the
// in-memory store is always authoritative and serves every read, while
// writes are mirrored to Postgres best-effort. A mirror failure is
// logged and otherwise ignored — it never fails the caller's write, and
// it never blocks the in-memory path.
type DualStore struct {
	mem *MemoryStore
	pg  *PostgresStore
}

// NewDualStore pairs an in-memory store with a Postgres mirror. pg may
// be nil, in which case DualStore behaves exactly like mem.
func NewDualStore(mem *MemoryStore, pg *PostgresStore) *DualStore {
	return &DualStore{mem: mem, pg: pg}
}

var _ Store = (*DualStore)(nil)

func (d *DualStore) mirror(name string, fn func() error) {
	if d.pg == nil {
		return
	}
	if err := fn(); err != nil {
		log.Error(err, "postgres mirror write failed", "op", name)
	}
}

func (d *DualStore) UpsertDevice(ctx context.Context, r protocol.DeviceRecord) error {
	err := d.mem.UpsertDevice(ctx, r)
	d.mirror("upsert_device", func() error { return d.pg.UpsertDevice(ctx, r) })
	return err
}

func (d *DualStore) GetDevice(ctx context.Context, deviceID string) (protocol.DeviceRecord, bool, error) {
	return d.mem.GetDevice(ctx, deviceID)
}

func (d *DualStore) ListDevices(ctx context.Context, fleetID string) ([]protocol.DeviceRecord, error) {
	return d.mem.ListDevices(ctx, fleetID)
}

func (d *DualStore) PutEnvelope(ctx context.Context, e protocol.CommandEnvelope) error {
	err := d.mem.PutEnvelope(ctx, e)
	d.mirror("put_envelope", func() error { return d.pg.PutEnvelope(ctx, e) })
	return err
}

func (d *DualStore) PutResponse(ctx context.Context, r protocol.CommandResponse) error {
	err := d.mem.PutResponse(ctx, r)
	d.mirror("put_response", func() error { return d.pg.PutResponse(ctx, r) })
	return err
}

func (d *DualStore) GetCommand(ctx context.Context, correlationID uuid.UUID) (CommandRecord, bool, error) {
	return d.mem.GetCommand(ctx, correlationID)
}

func (d *DualStore) ListCommands(ctx context.Context, fleetID string) ([]CommandRecord, error) {
	return d.mem.ListCommands(ctx, fleetID)
}

func (d *DualStore) AppendTelemetry(ctx context.Context, r protocol.TelemetryReading) error {
	err := d.mem.AppendTelemetry(ctx, r)
	d.mirror("append_telemetry", func() error { return d.pg.AppendTelemetry(ctx, r) })
	return err
}

func (d *DualStore) ListTelemetry(ctx context.Context, deviceID string, limit int) ([]protocol.TelemetryReading, error) {
	return d.mem.ListTelemetry(ctx, deviceID, limit)
}

func (d *DualStore) RecordHeartbeat(ctx context.Context, hb protocol.Heartbeat) error {
	err := d.mem.RecordHeartbeat(ctx, hb)
	d.mirror("record_heartbeat", func() error { return d.pg.RecordHeartbeat(ctx, hb) })
	return err
}

func (d *DualStore) GetShadow(ctx context.Context, deviceID, shadowName string) (protocol.ShadowState, bool, error) {
	return d.mem.GetShadow(ctx, deviceID, shadowName)
}

func (d *DualStore) ListShadowNames(ctx context.Context, deviceID string) ([]string, error) {
	return d.mem.ListShadowNames(ctx, deviceID)
}

func (d *DualStore) UpsertShadow(ctx context.Context, deviceID, shadowName string, s protocol.ShadowState) error {
	err := d.mem.UpsertShadow(ctx, deviceID, shadowName, s)
	d.mirror("upsert_shadow", func() error { return d.pg.UpsertShadow(ctx, deviceID, shadowName, s) })
	return err
}
