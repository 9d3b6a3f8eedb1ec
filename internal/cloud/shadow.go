package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeroclaw/fleetctl/internal/events"
	"github.com/zeroclaw/fleetctl/internal/shadow"
	"github.com/zeroclaw/fleetctl/pkg/broker"
	"github.com/zeroclaw/fleetctl/pkg/protocol"
	"github.com/zeroclaw/fleetctl/pkg/topic"
)

// emptyShadow is the zero state a (device, shadow_name) pair starts from
// before either side has written anything.
func emptyShadow() protocol.ShadowState {
	return protocol.ShadowState{
		Reported:    protocol.EmptyJSONObject,
		Desired:     protocol.EmptyJSONObject,
		Version:     0,
		LastUpdated: time.Time{},
	}
}

// HandleShadowUpdate ingests a device-originated ShadowUpdate: merges its
// Reported patch into the stored state by shallow top-level key union,
// increments the version, stores it, broadcasts ShadowUpdated, and — if
// the recomputed delta against Desired is non-empty — republishes a
// ShadowDelta so the device can keep converging.
func (s *Service) HandleShadowUpdate(ctx context.Context, fleetID string, upd protocol.ShadowUpdate) error {
	current, ok, err := s.Store.GetShadow(ctx, upd.DeviceID, upd.ShadowName)
	if err != nil {
		return err
	}
	if !ok {
		current = emptyShadow()
	}

	merged, err := shadow.MergeReported(current.Reported, upd.Reported)
	if err != nil {
		return fmt.Errorf("merge reported: %w", err)
	}

	current.Reported = merged
	current.Version++
	current.LastUpdated = time.Now().UTC()

	if err := s.Store.UpsertShadow(ctx, upd.DeviceID, upd.ShadowName, current); err != nil {
		return err
	}

	s.Bus.Publish(events.Event{
		Type: events.TypeShadowUpdated,
		Payload: events.ShadowUpdatedPayload{
			DeviceID:   upd.DeviceID,
			ShadowName: upd.ShadowName,
			State:      current,
		},
	})

	return s.publishDeltaIfAny(ctx, fleetID, upd.DeviceID, upd.ShadowName, current)
}

// SetDesiredShadow records an operator-set desired target for one shadow
// and, if the device hasn't already converged, republishes the delta
// immediately rather than waiting for the device's next reported update.
func (s *Service) SetDesiredShadow(ctx context.Context, fleetID, deviceID, shadowName string, desired json.RawMessage) (protocol.ShadowState, error) {
	current, ok, err := s.Store.GetShadow(ctx, deviceID, shadowName)
	if err != nil {
		return protocol.ShadowState{}, err
	}
	if !ok {
		current = emptyShadow()
	}

	current.Desired = desired
	current.Version++
	current.LastUpdated = time.Now().UTC()

	if err := s.Store.UpsertShadow(ctx, deviceID, shadowName, current); err != nil {
		return protocol.ShadowState{}, err
	}

	s.Bus.Publish(events.Event{
		Type: events.TypeShadowUpdated,
		Payload: events.ShadowUpdatedPayload{
			DeviceID:   deviceID,
			ShadowName: shadowName,
			State:      current,
		},
	})

	if err := s.publishDeltaIfAny(ctx, fleetID, deviceID, shadowName, current); err != nil {
		return protocol.ShadowState{}, err
	}
	return current, nil
}

// GetShadow returns the stored shadow state and its currently computed
// delta (desired vs reported), for the REST detail endpoint.
func (s *Service) GetShadow(ctx context.Context, deviceID, shadowName string) (state protocol.ShadowState, delta json.RawMessage, err error) {
	state, ok, err := s.Store.GetShadow(ctx, deviceID, shadowName)
	if err != nil {
		return protocol.ShadowState{}, nil, err
	}
	if !ok {
		state = emptyShadow()
	}
	d, hasDelta, err := shadow.ComputeDelta(state.Desired, state.Reported)
	if err != nil {
		return state, nil, err
	}
	if !hasDelta {
		return state, json.RawMessage("{}"), nil
	}
	return state, d, nil
}

// ListShadowNames returns every shadow name recorded for deviceID.
func (s *Service) ListShadowNames(ctx context.Context, deviceID string) ([]string, error) {
	return s.Store.ListShadowNames(ctx, deviceID)
}

// publishDeltaIfAny computes Desired\Reported for the given state and,
// when non-empty, publishes a ShadowDelta to the device's shadow/delta
// topic. An empty delta emits nothing, per spec.md §3's invariant.
func (s *Service) publishDeltaIfAny(ctx context.Context, fleetID, deviceID, shadowName string, state protocol.ShadowState) error {
	deltaBody, ok, err := shadow.ComputeDelta(state.Desired, state.Reported)
	if err != nil {
		return fmt.Errorf("compute delta: %w", err)
	}
	if !ok {
		return nil
	}

	delta := protocol.ShadowDelta{
		DeviceID:   deviceID,
		ShadowName: shadowName,
		Delta:      deltaBody,
		Version:    state.Version,
		Timestamp:  time.Now().UTC(),
	}
	payload, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("marshal delta: %w", err)
	}

	builder := topic.NewBuilder(fleetID)
	return s.Channel.Publish(ctx, builder.ShadowDelta(deviceID), broker.QoSAtLeastOnce, false, payload)
}
