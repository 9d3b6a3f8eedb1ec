// Package cloud implements the cloud-side business logic shared by the
// REST surface and the broker bridge: command dispatch, device
// lifecycle, shadow reconciliation and telemetry ingestion. Both
// external surfaces are thin adapters over this Service; neither holds
// its own copy of the in-memory/Postgres state.
package cloud

import (
	"context"
	"time"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/intent"
	"github.com/zeroclaw/fleetctl/internal/store"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// DefaultOfflineWindow is applied when no explicit window is configured:
// three times the agent's default heartbeat interval (spec.md's own safe
// default for the unspecified offline-transition window).
const DefaultOfflineWindow = 3 * 30 * time.Second

// Service orchestrates the cloud bridge's use cases: parsing and
// publishing commands, ingesting device-originated messages, and
// reconciling shadow state. It holds no per-request state of its own.
type Service struct {
	Store         store.Store
	Bus           *events.Bus
	Channel       broker.Channel
	CloudEngine   intent.Engine // nil is valid: envelopes publish with no parsed_intent
	OfflineWindow time.Duration
}

// New builds a Service. cloudEngine may be nil, in which case every
// submitted command is published unparsed and the agent's own local
// engine is relied on entirely.
func New(st store.Store, bus *events.Bus, ch broker.Channel, cloudEngine intent.Engine) *Service {
	return &Service{
		Store:         st,
		Bus:           bus,
		Channel:       ch,
		CloudEngine:   cloudEngine,
		OfflineWindow: DefaultOfflineWindow,
	}
}

// RunOfflineSweep polls the device registry every interval and
// transitions any device whose last heartbeat is older than
// s.OfflineWindow to DeviceOffline, broadcasting DeviceStatusChanged for
// each transition. It returns when ctx is cancelled.
func (s *Service) RunOfflineSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	devices, err := s.Store.ListDevices(ctx, "")
	if err != nil {
		return
	}
	now := time.Now().UTC()
	for _, d := range devices {
		if d.Status == protocol.DeviceOffline || d.Status == protocol.DeviceDecommissioned {
			continue
		}
		if !d.IsOffline(now, s.OfflineWindow) {
			continue
		}
		old := d.Status
		d.Status = protocol.DeviceOffline
		d.UpdatedAt = now
		if err := s.Store.UpsertDevice(ctx, d); err != nil {
			continue
		}
		s.publishStatusChanged(d.DeviceID, d.FleetID, old, d.Status, now)
	}
}
