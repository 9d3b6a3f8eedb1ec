package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/zeroclaw/fleetctl/internal/tools"
	"github.com/zeroclaw/fleetctl/pkg/protocol"

	"github.com/google/uuid"
)

func newTestExecutor() *Executor {
	reg := tools.NewRegistry(tools.NewMockCanBackend(), tools.NewMockLogBackend())
	return New(reg, nil)
}

func envelopeWithIntent(intent protocol.ParsedIntent) protocol.CommandEnvelope {
	return protocol.CommandEnvelope{
		ID:            uuid.Must(uuid.NewV7()),
		CorrelationID: uuid.Must(uuid.NewV7()),
		DeviceID:      "device-1",
		ParsedIntent:  &intent,
	}
}

func TestExecute_ToolSuccess(t *testing.T) {
	e := newTestExecutor()
	envelope := envelopeWithIntent(protocol.ParsedIntent{
		Action: protocol.ActionTool,
		Name:   "read_vin",
	})
	resp := e.Execute(context.Background(), envelope)
	if resp.Status != protocol.StatusCompleted {
		t.Fatalf("expected Completed, got %s (%s)", resp.Status, resp.Error)
	}
	if resp.CorrelationID != envelope.CorrelationID {
		t.Errorf("correlation id mismatch")
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	e := newTestExecutor()
	envelope := envelopeWithIntent(protocol.ParsedIntent{
		Action: protocol.ActionTool,
		Name:   "nonexistent_tool",
	})
	resp := e.Execute(context.Background(), envelope)
	if resp.Status != protocol.StatusFailed {
		t.Fatalf("expected Failed, got %s", resp.Status)
	}
	if resp.Error != "unknown tool: nonexistent_tool" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
}

func TestExecute_ShellAllowed(t *testing.T) {
	e := newTestExecutor()
	envelope := envelopeWithIntent(protocol.ParsedIntent{
		Action: protocol.ActionShell,
		Name:   "uptime",
	})
	resp := e.Execute(context.Background(), envelope)
	if resp.Status != protocol.StatusCompleted {
		t.Fatalf("expected Completed, got %s (%s)", resp.Status, resp.Error)
	}
}

func TestExecute_ShellBlocked(t *testing.T) {
	e := newTestExecutor()
	envelope := envelopeWithIntent(protocol.ParsedIntent{
		Action: protocol.ActionShell,
		Name:   "rm -rf /tmp",
	})
	resp := e.Execute(context.Background(), envelope)
	if resp.Status != protocol.StatusFailed {
		t.Fatalf("expected Failed, got %s", resp.Status)
	}
	if resp.Error != "shell: blocked command: rm" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
}

func TestExecute_Reply(t *testing.T) {
	e := newTestExecutor()
	args, _ := json.Marshal(map[string]string{"message": "Hello! I'm the fleet agent."})
	envelope := envelopeWithIntent(protocol.ParsedIntent{
		Action: protocol.ActionReply,
		Args:   args,
	})
	resp := e.Execute(context.Background(), envelope)
	if resp.Status != protocol.StatusCompleted {
		t.Fatalf("expected Completed, got %s", resp.Status)
	}
	if resp.ResponseText != "Hello! I'm the fleet agent." {
		t.Errorf("unexpected response text: %q", resp.ResponseText)
	}
}

func TestExecute_NoParsedIntentNoLocalEngine(t *testing.T) {
	e := newTestExecutor()
	envelope := protocol.CommandEnvelope{
		ID:            uuid.Must(uuid.NewV7()),
		CorrelationID: uuid.Must(uuid.NewV7()),
		DeviceID:      "device-1",
	}
	resp := e.Execute(context.Background(), envelope)
	if resp.Status != protocol.StatusFailed {
		t.Fatalf("expected Failed, got %s", resp.Status)
	}
	if resp.Error != "no parsed_intent and local inference not available" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
}
