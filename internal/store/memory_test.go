package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zeroclaw/fleetctl/pkg/protocol"
)

func TestMemoryStore_EnvelopeThenResponse(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	env := protocol.NewCommandEnvelope("fleet-1", "device-1", "what is the uptime?", "operator@example.com")
	if err := s.PutEnvelope(ctx, env); err != nil {
		t.Fatalf("PutEnvelope: %v", err)
	}

	rec, ok, err := s.GetCommand(ctx, env.CorrelationID)
	if err != nil || !ok {
		t.Fatalf("GetCommand: ok=%v err=%v", ok, err)
	}
	if rec.Status() != protocol.StatusPending {
		t.Errorf("expected Pending before a response arrives, got %s", rec.Status())
	}

	resp := protocol.CommandResponse{
		CommandID:     uuid.Must(uuid.NewV7()),
		CorrelationID: env.CorrelationID,
		DeviceID:      env.DeviceID,
		Status:        protocol.StatusCompleted,
		ResponseText:  "up 3 days",
		RespondedAt:   time.Now().UTC(),
	}
	if err := s.PutResponse(ctx, resp); err != nil {
		t.Fatalf("PutResponse: %v", err)
	}

	rec, ok, err = s.GetCommand(ctx, env.CorrelationID)
	if err != nil || !ok {
		t.Fatalf("GetCommand after response: ok=%v err=%v", ok, err)
	}
	if rec.Status() != protocol.StatusCompleted {
		t.Errorf("expected Completed, got %s", rec.Status())
	}
	if rec.Envelope.NaturalLanguage != "what is the uptime?" {
		t.Errorf("envelope lost across writes: %+v", rec.Envelope)
	}
}

func TestMemoryStore_ShadowUpsertAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	state := protocol.ShadowState{
		Reported:    protocol.EmptyJSONObject,
		Desired:     protocol.EmptyJSONObject,
		Version:     1,
		LastUpdated: time.Now().UTC(),
	}
	if err := s.UpsertShadow(ctx, "device-1", "vehicle", state); err != nil {
		t.Fatalf("UpsertShadow: %v", err)
	}

	got, ok, err := s.GetShadow(ctx, "device-1", "vehicle")
	if err != nil || !ok {
		t.Fatalf("GetShadow: ok=%v err=%v", ok, err)
	}
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}

	names, err := s.ListShadowNames(ctx, "device-1")
	if err != nil {
		t.Fatalf("ListShadowNames: %v", err)
	}
	if len(names) != 1 || names[0] != "vehicle" {
		t.Errorf("expected [vehicle], got %v", names)
	}
}

func TestMemoryStore_DeviceListFiltersByFleet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.UpsertDevice(ctx, protocol.DeviceRecord{DeviceID: "a", FleetID: "fleet-1"})
	_ = s.UpsertDevice(ctx, protocol.DeviceRecord{DeviceID: "b", FleetID: "fleet-2"})

	devices, err := s.ListDevices(ctx, "fleet-1")
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 1 || devices[0].DeviceID != "a" {
		t.Errorf("expected only device a, got %+v", devices)
	}
}

func TestMemoryStore_TelemetryListHonorsLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 5; i++ {
		_ = s.AppendTelemetry(ctx, protocol.TelemetryReading{DeviceID: "d1", MetricName: "rpm", Time: time.Now()})
	}

	readings, err := s.ListTelemetry(ctx, "d1", 3)
	if err != nil {
		t.Fatalf("ListTelemetry: %v", err)
	}
	if len(readings) != 3 {
		t.Errorf("expected limit=3 readings, got %d", len(readings))
	}
}
