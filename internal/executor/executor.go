// Package executor runs a single CommandEnvelope to a single
// CommandResponse: it resolves the parsed intent (from the envelope or,
// failing that, an on-device LLM), dispatches the three action kinds
// through their own distinct code paths, and stamps the response's
// timing and correlation fields uniformly.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeroclaw/fleetctl/internal/intent"
	"github.com/zeroclaw/fleetctl/internal/shell"
	"github.com/zeroclaw/fleetctl/internal/tools"
	"github.com/zeroclaw/fleetctl/pkg/log"
	"github.com/zeroclaw/fleetctl/pkg/protocol"

	"github.com/google/uuid"
)

// Executor turns one CommandEnvelope into one CommandResponse. It holds
// no per-envelope state: every field is either immutable after
// construction (registry, local engine) or read fresh off the envelope.
type Executor struct {
	registry    *tools.Registry
	localEngine intent.Engine // optional; nil means "no local inference available"
}

// New builds an Executor. localEngine may be nil when no on-device model
// is configured; envelopes that arrive without a pre-parsed intent then
// fail fast with the same message the fallback-less Rust original uses.
func New(registry *tools.Registry, localEngine intent.Engine) *Executor {
	return &Executor{registry: registry, localEngine: localEngine}
}

// ToolCount reports the size of the underlying tool registry, surfaced
// in the agent's periodic shadow snapshot.
func (e *Executor) ToolCount() int {
	return e.registry.Len()
}

// IsCanTool reports whether name is registered against the CAN backend,
// as opposed to the log backend. The agent uses this to decide whether a
// failed tool call is worth raising as an Alert.
func (e *Executor) IsCanTool(name string) bool {
	t, ok := e.registry.Lookup(name)
	return ok && t.Kind == tools.KindCan
}

// Execute resolves envelope's intent and dispatches it, returning a
// CommandResponse whose CorrelationID always matches the envelope and
// whose Status is always one of the four terminal values.
func (e *Executor) Execute(ctx context.Context, envelope protocol.CommandEnvelope) protocol.CommandResponse {
	start := time.Now()

	parsed, tier, err := e.resolveIntent(ctx, envelope)
	if err != nil {
		return e.errorResponse(envelope, start, err.Error())
	}

	var status protocol.CommandStatus
	var responseText string
	var responseData json.RawMessage
	var responseErr string

	switch parsed.Action {
	case protocol.ActionTool:
		status, responseText, responseData, responseErr = e.executeTool(ctx, parsed)
	case protocol.ActionShell:
		status, responseText, responseErr = e.executeShell(ctx, parsed)
	case protocol.ActionReply:
		status, responseText = executeReply(parsed)
	default:
		status = drive("fail")
		responseErr = fmt.Sprintf("unknown action kind: %s", parsed.Action)
	}

	return protocol.CommandResponse{
		CommandID:     uuid.Must(uuid.NewV7()),
		CorrelationID: envelope.CorrelationID,
		DeviceID:      envelope.DeviceID,
		Status:        status,
		InferenceTier: tier,
		ResponseText:  responseText,
		ResponseData:  responseData,
		Error:         responseErr,
		LatencyMs:     uint64(time.Since(start).Milliseconds()),
		RespondedAt:   time.Now().UTC(),
	}
}

// resolveIntent prefers an envelope's own pre-parsed intent (tier Local,
// regardless of which engine upstream produced it — the envelope doesn't
// carry tier provenance past this point) and falls back to the
// configured on-device engine only when the envelope arrives unparsed.
func (e *Executor) resolveIntent(ctx context.Context, envelope protocol.CommandEnvelope) (protocol.ParsedIntent, protocol.InferenceTier, error) {
	if envelope.ParsedIntent != nil {
		return *envelope.ParsedIntent, protocol.TierLocal, nil
	}
	if e.localEngine == nil {
		return protocol.ParsedIntent{}, "", fmt.Errorf("no parsed_intent and local inference not available")
	}
	result, err := e.localEngine.Parse(ctx, envelope.NaturalLanguage)
	if err != nil {
		return protocol.ParsedIntent{}, "", fmt.Errorf("no parsed_intent and local inference not available")
	}
	if result == nil {
		return protocol.ParsedIntent{}, "", fmt.Errorf("no parsed_intent and local inference not available")
	}
	return result.Intent, result.Tier, nil
}

// executeTool looks up and runs a registered tool. An unknown tool name
// surfaces the registry's own "unknown tool: %s" message verbatim.
func (e *Executor) executeTool(ctx context.Context, parsed protocol.ParsedIntent) (protocol.CommandStatus, string, json.RawMessage, string) {
	result, err := e.registry.Execute(ctx, parsed.Name, parsed.Args)
	if err != nil {
		return drive("fail"), "", nil, err.Error()
	}
	if !result.Success {
		return drive("fail"), "", nil, result.Error
	}

	text := result.Summary
	if text == "" {
		text = fmt.Sprintf("Tool '%s' executed successfully", parsed.Name)
	}
	return drive("complete"), text, result.Data, ""
}

// executeShell runs the sanitized command through the sandbox. Any
// sandbox rejection or timeout is surfaced verbatim as "shell: ...";
// a non-zero exit code is not itself a failure.
func (e *Executor) executeShell(ctx context.Context, parsed protocol.ParsedIntent) (protocol.CommandStatus, string, string) {
	result, err := shell.Execute(ctx, parsed.Name)
	if err != nil {
		return drive("fail"), "", err.Error()
	}

	text := result.Stdout
	if result.Stderr != "" {
		text += fmt.Sprintf("\n[stderr] %s", result.Stderr)
	}
	if result.Truncated {
		log.Info("shell output truncated", "command", parsed.Name)
	}
	return drive("complete"), text, ""
}

// executeReply extracts the "message" argument and returns it verbatim.
// It has no side effects: no tool lookup, no subprocess spawn.
func executeReply(parsed protocol.ParsedIntent) (protocol.CommandStatus, string) {
	msg, ok := parsed.ReplyMessage()
	if !ok {
		msg = "(no response)"
	}
	return drive("complete"), msg
}

func (e *Executor) errorResponse(envelope protocol.CommandEnvelope, start time.Time, message string) protocol.CommandResponse {
	return protocol.CommandResponse{
		CommandID:     uuid.Must(uuid.NewV7()),
		CorrelationID: envelope.CorrelationID,
		DeviceID:      envelope.DeviceID,
		Status:        protocol.StatusFailed,
		InferenceTier: protocol.TierLocal,
		Error:         message,
		LatencyMs:     uint64(time.Since(start).Milliseconds()),
		RespondedAt:   time.Now().UTC(),
	}
}
