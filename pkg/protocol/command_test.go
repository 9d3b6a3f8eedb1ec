package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewCommandEnvelopeDistinctIDs(t *testing.T) {
	a := NewCommandEnvelope("fleet-alpha", "rpi-001", "read DTCs", "operator@test.com")
	b := NewCommandEnvelope("fleet-alpha", "rpi-001", "read DTCs", "operator@test.com")

	if a.ID == b.ID {
		t.Fatalf("expected distinct envelope ids, got %s twice", a.ID)
	}
	if a.CorrelationID != a.ID {
		t.Fatalf("expected correlation id to equal envelope id on creation")
	}
	if a.TimeoutSecs != DefaultTimeoutSecs {
		t.Fatalf("expected default timeout %d, got %d", DefaultTimeoutSecs, a.TimeoutSecs)
	}
}

func TestCommandEnvelopeJSONRoundTrip(t *testing.T) {
	env := NewCommandEnvelope("fleet-alpha", "rpi-001", "read DTCs", "operator@test.com")

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out CommandEnvelope
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.FleetID != env.FleetID || out.DeviceID != env.DeviceID {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, env)
	}
	if out.ParsedIntent != nil {
		t.Fatalf("expected parsed_intent to be omitted when nil")
	}
}

func TestParsedIntentReplyMessage(t *testing.T) {
	intent := ParsedIntent{
		Action: ActionReply,
		Args:   json.RawMessage(`{"message":"Hello! I'm the fleet agent."}`),
	}
	msg, ok := intent.ReplyMessage()
	if !ok || msg != "Hello! I'm the fleet agent." {
		t.Fatalf("expected reply message extraction, got %q ok=%v", msg, ok)
	}

	empty := ParsedIntent{Action: ActionReply}
	if _, ok := empty.ReplyMessage(); ok {
		t.Fatalf("expected no message for empty args")
	}
}

func TestParsedIntentBackwardCompatNoAction(t *testing.T) {
	raw := []byte(`{"tool_name":"read_dtcs","tool_args":{},"confidence":0.95}`)
	var intent ParsedIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if intent.Action != "" {
		t.Fatalf("expected zero-value action when field absent, got %q", intent.Action)
	}
}

func TestCommandStatusIsTerminal(t *testing.T) {
	cases := map[CommandStatus]bool{
		StatusPending:    false,
		StatusSent:       false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusTimeout:    true,
		StatusCancelled:  true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestCommandResponseValidate(t *testing.T) {
	base := CommandResponse{
		CommandID:     uuid.Must(uuid.NewV7()),
		CorrelationID: uuid.Must(uuid.NewV7()),
		DeviceID:      "rpi-001",
		LatencyMs:     50,
		RespondedAt:   time.Now(),
	}

	completed := base
	completed.Status = StatusCompleted
	if err := completed.Validate(); err != nil {
		t.Errorf("completed without error should validate, got %v", err)
	}

	completedWithErr := base
	completedWithErr.Status = StatusCompleted
	completedWithErr.Error = "boom"
	if err := completedWithErr.Validate(); err == nil {
		t.Errorf("expected validation error for completed+error")
	}

	failed := base
	failed.Status = StatusFailed
	if err := failed.Validate(); err == nil {
		t.Errorf("expected validation error for failed without error")
	}

	failedWithErr := base
	failedWithErr.Status = StatusFailed
	failedWithErr.Error = "CAN bus interface not available"
	if err := failedWithErr.Validate(); err != nil {
		t.Errorf("failed with error should validate, got %v", err)
	}
}
