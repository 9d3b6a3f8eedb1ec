package cloud

import (
	"context"
	"time"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/pkg/metrics"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// ProvisionDevice registers a new device in Provisioning status, per the
// lifecycle spec.md §3 defines: Provisioning at registration, Online on
// first heartbeat.
func (s *Service) ProvisionDevice(ctx context.Context, d protocol.DeviceRecord) (protocol.DeviceRecord, error) {
	now := time.Now().UTC()
	d.Status = protocol.DeviceProvisioning
	d.CreatedAt = now
	d.UpdatedAt = now
	if len(d.Metadata) == 0 {
		d.Metadata = protocol.EmptyJSONObject
	}

	if err := s.Store.UpsertDevice(ctx, d); err != nil {
		return protocol.DeviceRecord{}, err
	}

	s.Bus.Publish(events.Event{
		Type:    events.TypeDeviceProvisioned,
		Payload: events.DeviceProvisionedPayload{Device: d},
	})
	return d, nil
}

// GetDevice returns the device record for deviceID.
func (s *Service) GetDevice(ctx context.Context, deviceID string) (protocol.DeviceRecord, bool, error) {
	return s.Store.GetDevice(ctx, deviceID)
}

// ListDevices returns every device, optionally filtered to one fleet.
func (s *Service) ListDevices(ctx context.Context, fleetID string) ([]protocol.DeviceRecord, error) {
	return s.Store.ListDevices(ctx, fleetID)
}

// HandleAlert ingests an inbound Alert. Unlike heartbeats and shadow
// updates it has no persisted record of its own: it exists purely to get
// the condition onto the event bus for whichever REST session is
// watching, the moment it happens rather than on the next shadow or
// heartbeat cycle.
func (s *Service) HandleAlert(ctx context.Context, a protocol.Alert) error {
	metrics.AlertsRaisedTotal.Inc()
	s.Bus.Publish(events.Event{
		Type: events.TypeAlertRaised,
		Payload: events.AlertRaisedPayload{
			DeviceID: a.DeviceID,
			Message:  a.Message,
			Time:     a.Time,
		},
	})
	return nil
}

// HandleHeartbeat applies an inbound Heartbeat: it updates LastHeartbeat,
// transitions Offline/Provisioning devices to Online, and broadcasts
// both DeviceHeartbeat and (when the status actually changed)
// DeviceStatusChanged.
func (s *Service) HandleHeartbeat(ctx context.Context, hb protocol.Heartbeat) error {
	existing, found := protocol.DeviceRecord{}, false
	if d, ok, err := s.Store.GetDevice(ctx, hb.DeviceID); err == nil && ok {
		existing, found = d, true
	}

	old := existing.Status
	if !found {
		existing = protocol.DeviceRecord{
			DeviceID:  hb.DeviceID,
			FleetID:   hb.FleetID,
			CreatedAt: hb.Timestamp,
			Metadata:  protocol.EmptyJSONObject,
		}
	}

	ts := hb.Timestamp
	existing.LastHeartbeat = &ts
	existing.UpdatedAt = ts
	if !found || old == protocol.DeviceOffline || old == protocol.DeviceProvisioning {
		existing.Status = protocol.DeviceOnline
	}

	if err := s.Store.UpsertDevice(ctx, existing); err != nil {
		return err
	}
	if err := s.Store.RecordHeartbeat(ctx, hb); err != nil {
		return err
	}

	s.Bus.Publish(events.Event{
		Type:    events.TypeDeviceHeartbeat,
		Payload: events.DeviceHeartbeatPayload{Heartbeat: hb},
	})
	metrics.DeviceHeartbeatsTotal.Inc()

	if existing.Status != old {
		s.publishStatusChanged(hb.DeviceID, hb.FleetID, old, existing.Status, ts)
	}
	return nil
}

func (s *Service) publishStatusChanged(deviceID, fleetID string, old, newStatus protocol.DeviceStatus, at time.Time) {
	s.Bus.Publish(events.Event{
		Type: events.TypeDeviceStatusChanged,
		Payload: events.DeviceStatusChangedPayload{
			DeviceID:  deviceID,
			FleetID:   fleetID,
			Old:       old,
			New:       newStatus,
			Timestamp: at,
		},
	})
	metrics.DeviceStatusChangesTotal.WithLabelValues(string(newStatus)).Inc()
}
