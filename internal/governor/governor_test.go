package governor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/zeroclaw/fleetctl/pkg/protocol"

	"github.com/google/uuid"
)

func baseResponse() protocol.CommandResponse {
	return protocol.CommandResponse{
		CommandID:     uuid.Must(uuid.NewV7()),
		CorrelationID: uuid.Must(uuid.NewV7()),
		DeviceID:      "device-1",
		Status:        protocol.StatusCompleted,
		InferenceTier: protocol.TierLocal,
	}
}

func TestApply_FitsVerbatim(t *testing.T) {
	resp := baseResponse()
	resp.ResponseText = "ok"
	out, b := Apply(resp)
	if out.Status != protocol.StatusCompleted {
		t.Errorf("status changed unexpectedly")
	}
	if len(b) > MaxBytes {
		t.Errorf("should already fit")
	}
}

func TestApply_TrimsPaginatedArray(t *testing.T) {
	resp := baseResponse()

	entries := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		entries = append(entries, strings.Repeat("x", 50))
	}
	data, _ := json.Marshal(map[string]any{"entries": entries})
	resp.ResponseData = data

	out, b := Apply(resp)
	if len(b) > MaxBytes {
		t.Fatalf("result exceeds limit: %d bytes", len(b))
	}
	if out.CorrelationID != resp.CorrelationID {
		t.Errorf("correlation id must never change")
	}
	if out.Status != protocol.StatusCompleted {
		t.Errorf("status must never change")
	}

	var trimmed map[string]any
	if err := json.Unmarshal(out.ResponseData, &trimmed); err != nil {
		t.Fatalf("expected valid json: %v", err)
	}
	trimmedEntries, _ := trimmed["entries"].([]any)
	if len(trimmedEntries) >= len(entries) {
		t.Errorf("expected entries to be trimmed, got %d of %d", len(trimmedEntries), len(entries))
	}
}

func TestApply_NullsResponseDataWhenUntrimmable(t *testing.T) {
	resp := baseResponse()
	data, _ := json.Marshal(map[string]any{"blob": strings.Repeat("y", 200*1024)})
	resp.ResponseData = data
	resp.ResponseText = "summary"

	out, b := Apply(resp)
	if len(b) > MaxBytes {
		t.Fatalf("result exceeds limit: %d bytes", len(b))
	}
	if out.ResponseData != nil {
		t.Errorf("expected response_data to be nulled")
	}
	if !out.Truncated {
		t.Errorf("expected truncation marker to be set")
	}
	if out.ResponseText != "summary" {
		t.Errorf("response_text should survive this stage")
	}
}

func TestApply_TruncatesResponseText(t *testing.T) {
	resp := baseResponse()
	resp.ResponseText = strings.Repeat("z", 200*1024)

	out, b := Apply(resp)
	if len(b) > MaxBytes {
		t.Fatalf("result exceeds limit: %d bytes", len(b))
	}
	if !strings.HasSuffix(out.ResponseText, textTruncationMarker) {
		t.Errorf("expected ellipsis marker at the end")
	}
}
