package cloud

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/pkg/metrics"
	"github.com/zeroclaw/fleetctl/internal/store"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
	"github.com/zeroclaw/fleetctl/pkg/topic"
)

// SubmitCommand builds a new CommandEnvelope from an operator's natural
// language text, attaches whichever intent the active cloud engine
// produces (none is a valid outcome), persists it, and publishes it to
// the device's command-request topic. It never blocks for the device's
// response: the caller observes completion asynchronously through the
// event bus or by polling GetCommand.
func (s *Service) SubmitCommand(ctx context.Context, fleetID, deviceID, text, initiatedBy string) (protocol.CommandEnvelope, error) {
	envelope := protocol.NewCommandEnvelope(fleetID, deviceID, text, initiatedBy)

	if s.CloudEngine != nil {
		if result, err := s.CloudEngine.Parse(ctx, text); err == nil && result != nil {
			intent := result.Intent
			envelope.ParsedIntent = &intent
		}
	}

	if err := s.Store.PutEnvelope(ctx, envelope); err != nil {
		return protocol.CommandEnvelope{}, fmt.Errorf("store envelope: %w", err)
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return protocol.CommandEnvelope{}, fmt.Errorf("marshal envelope: %w", err)
	}

	builder := topic.NewBuilder(fleetID)
	if err := s.Channel.Publish(ctx, builder.CommandRequest(deviceID), broker.QoSAtLeastOnce, false, payload); err != nil {
		return protocol.CommandEnvelope{}, fmt.Errorf("publish envelope: %w", err)
	}

	s.Bus.Publish(events.Event{
		Type: events.TypeCommandDispatched,
		Payload: events.CommandDispatchedPayload{
			CorrelationID: envelope.CorrelationID,
			DeviceID:      deviceID,
			FleetID:       fleetID,
		},
	})
	metrics.CommandsDispatchedTotal.Inc()

	return envelope, nil
}

// HandleResponse ingests a device's CommandResponse: matches it by
// CorrelationID, updates the stored record, and broadcasts
// CommandResponse to live observers.
func (s *Service) HandleResponse(ctx context.Context, resp protocol.CommandResponse) error {
	if err := s.Store.PutResponse(ctx, resp); err != nil {
		return err
	}
	s.Bus.Publish(events.Event{
		Type:    events.TypeCommandResponse,
		Payload: events.CommandResponsePayload{Response: resp},
	})
	metrics.CommandResponsesTotal.WithLabelValues(string(resp.Status)).Inc()
	metrics.CommandLatencySeconds.Observe(float64(resp.LatencyMs) / 1000)
	return nil
}

// GetCommand returns the envelope/response pair for one correlation id.
func (s *Service) GetCommand(ctx context.Context, correlationID uuid.UUID) (store.CommandRecord, bool, error) {
	return s.Store.GetCommand(ctx, correlationID)
}

// ListCommands returns every command record, optionally filtered to one
// fleet.
func (s *Service) ListCommands(ctx context.Context, fleetID string) ([]store.CommandRecord, error) {
	return s.Store.ListCommands(ctx, fleetID)
}
