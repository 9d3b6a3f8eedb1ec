package cloud

import (
	"context"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/pkg/metrics"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

// HandleTelemetry appends one inbound reading to the telemetry store and
// broadcasts TelemetryIngested. Count is always 1 here: the broker
// topic schema carries one reading per message (see pkg/topic), unlike a
// batched ingest path that might report a larger count.
func (s *Service) HandleTelemetry(ctx context.Context, r protocol.TelemetryReading) error {
	if err := s.Store.AppendTelemetry(ctx, r); err != nil {
		return err
	}
	s.Bus.Publish(events.Event{
		Type: events.TypeTelemetryIngested,
		Payload: events.TelemetryIngestedPayload{
			DeviceID: r.DeviceID,
			Source:   r.Source,
			Count:    1,
		},
	})
	metrics.TelemetryIngestedTotal.WithLabelValues(string(r.Source)).Inc()
	return nil
}

// ListTelemetry returns the most recent readings for a device, newest
// last, capped at limit (0 means "use the store's own default").
func (s *Service) ListTelemetry(ctx context.Context, deviceID string, limit int) ([]protocol.TelemetryReading, error) {
	return s.Store.ListTelemetry(ctx, deviceID, limit)
}
